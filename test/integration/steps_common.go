package integration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/cucumber/godog"

	"github.com/doodlesbykumbi/marathon-in-go/pkg/batch"
	"github.com/doodlesbykumbi/marathon-in-go/pkg/driver"
	"github.com/doodlesbykumbi/marathon-in-go/pkg/model"
	gormstore "github.com/doodlesbykumbi/marathon-in-go/pkg/server/store/gorm"
)

// historyLimit matches the default history_limit of the server.
const historyLimit = 50

// StepsContext holds state shared between step definitions
type StepsContext struct {
	tc           *TestContext
	instance     *ServerInstance
	response     *http.Response
	responseBody []byte
}

// NewStepsContext creates a new steps context
func NewStepsContext(tc *TestContext) *StepsContext {
	return &StepsContext{tc: tc}
}

// RegisterSteps registers all step definitions
func (s *StepsContext) RegisterSteps(sc *godog.ScenarioContext) {
	sc.After(func(ctx context.Context, _ *godog.Scenario, err error) (context.Context, error) {
		if s.instance != nil {
			s.instance.Stop()
			s.instance = nil
		}
		return ctx, err
	})

	// Background steps
	sc.Step(`^a Marathon server is running$`, s.aMarathonServerIsRunning)
	sc.Step(`^a batch "([^"]*)" of "([^"]*)" succeeded with serials "([^"]*)"$`, s.aBatchSucceeded)
	sc.Step(`^a batch "([^"]*)" of "([^"]*)" failed with serials "([^"]*)" and error "([^"]*)"$`, s.aBatchFailed)
	sc.Step(`^(\d+) batches of "([^"]*)" were recorded$`, s.batchesWereRecorded)

	// Request steps
	sc.Step(`^I GET "([^"]*)"$`, s.iGET)
	sc.Step(`^I GET "([^"]*)" as JSON$`, s.iGETAsJSON)
	sc.Step(`^I POST "([^"]*)" with:$`, s.iPOSTWith)
	sc.Step(`^I DELETE "([^"]*)"$`, s.iDELETE)

	// Response steps
	sc.Step(`^the response status should be (\d+)$`, s.theResponseStatusShouldBe)
	sc.Step(`^the response should contain "([^"]*)"$`, s.theResponseShouldContain)
	sc.Step(`^the response header "([^"]*)" should match "([^"]*)"$`, s.theResponseHeaderShouldMatch)
	sc.Step(`^the response body should start with "([^"]*)"$`, s.theResponseBodyShouldStartWith)
	sc.Step(`^the response JSON "([^"]*)" should be "([^"]*)"$`, s.theResponseJSONShouldBe)
	sc.Step(`^the response should list (\d+) entr(?:y|ies)$`, s.theResponseShouldListEntries)

	// Database steps
	sc.Step(`^the database should hold (\d+) batch(?:es)?$`, s.theDatabaseShouldHoldBatches)
}

// Background steps

func (s *StepsContext) aMarathonServerIsRunning() error {
	if err := s.tc.Reset(); err != nil {
		return fmt.Errorf("failed to reset database: %w", err)
	}
	instance, err := StartServer(s.tc)
	if err != nil {
		return err
	}
	s.instance = instance
	return nil
}

// record stores a finished run the way the batch runner does.
func (s *StepsContext) record(res *driver.Result, limit int) error {
	if err := gormstore.NewHistoryStore(s.tc.DB).AddBatch(batch.ToBatch(res), limit); err != nil {
		return fmt.Errorf("failed to record batch: %w", err)
	}
	return gormstore.NewStatisticsStore(s.tc.DB).RecordBatch(batch.Statistic(res))
}

func newResult(id, product, serials string, failure error) *driver.Result {
	now := time.Now()
	res := &driver.Result{
		BatchID:    id,
		Mode:       driver.ModeBatch,
		Product:    product,
		StartedAt:  now.Add(-time.Minute),
		FinishedAt: now,
		LoggedIn:   true,
	}
	for _, serial := range strings.Split(serials, ",") {
		item := driver.Item{Serial: strings.TrimSpace(serial), Product: product}
		if failure == nil {
			item.Attempted, item.OK = true, true
			res.Succeeded++
		} else {
			item.Error = failure.Error()
			res.Failed++
		}
		res.Items = append(res.Items, item)
	}
	if failure != nil {
		res.Err = failure
		res.Error = failure.Error()
	}
	return res
}

func (s *StepsContext) aBatchSucceeded(id, product, serials string) error {
	return s.record(newResult(id, product, serials, nil), historyLimit)
}

func (s *StepsContext) aBatchFailed(id, product, serials, message string) error {
	return s.record(newResult(id, product, serials, errors.New(message)), historyLimit)
}

func (s *StepsContext) batchesWereRecorded(count int, product string) error {
	for i := 0; i < count; i++ {
		res := newResult(fmt.Sprintf("batch-%03d", i), product, fmt.Sprintf("SN%06d", i), nil)
		res.StartedAt = res.StartedAt.Add(time.Duration(i) * time.Second)
		if err := s.record(res, historyLimit); err != nil {
			return err
		}
	}
	return nil
}

// Request steps

func (s *StepsContext) send(method, path, contentType, body string, header http.Header) error {
	if s.instance == nil {
		return fmt.Errorf("no server is running")
	}
	req, err := http.NewRequest(method, s.instance.ServerURL+path, strings.NewReader(body))
	if err != nil {
		return err
	}
	for k, v := range header {
		req.Header[k] = v
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := s.tc.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	s.response = resp
	s.responseBody, err = io.ReadAll(resp.Body)
	return err
}

func (s *StepsContext) iGET(path string) error {
	return s.send(http.MethodGet, path, "", "", nil)
}

func (s *StepsContext) iGETAsJSON(path string) error {
	return s.send(http.MethodGet, path, "", "", http.Header{"Accept": {"application/json"}})
}

func (s *StepsContext) iPOSTWith(path string, body *godog.DocString) error {
	return s.send(http.MethodPost, path, "application/json", body.Content, nil)
}

func (s *StepsContext) iDELETE(path string) error {
	return s.send(http.MethodDelete, path, "", "", nil)
}

// Response steps

func (s *StepsContext) theResponseStatusShouldBe(expectedStatus int) error {
	if s.response == nil {
		return fmt.Errorf("no response received")
	}
	if s.response.StatusCode != expectedStatus {
		return fmt.Errorf("expected status %d, got %d: %s", expectedStatus, s.response.StatusCode, string(s.responseBody))
	}
	return nil
}

func (s *StepsContext) theResponseShouldContain(text string) error {
	if !strings.Contains(string(s.responseBody), text) {
		return fmt.Errorf("expected response to contain %q, got: %s", text, string(s.responseBody))
	}
	return nil
}

func (s *StepsContext) theResponseHeaderShouldMatch(name, pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	if got := s.response.Header.Get(name); !re.MatchString(got) {
		return fmt.Errorf("expected header %s to match %q, got %q", name, pattern, got)
	}
	return nil
}

func (s *StepsContext) theResponseBodyShouldStartWith(prefix string) error {
	if !strings.HasPrefix(string(s.responseBody), prefix) {
		return fmt.Errorf("expected response to start with %q", prefix)
	}
	return nil
}

// theResponseJSONShouldBe compares a dotted path of the JSON response, such
// as "today.serials", with the expected value.
func (s *StepsContext) theResponseJSONShouldBe(path, expected string) error {
	var value interface{}
	if err := json.Unmarshal(s.responseBody, &value); err != nil {
		return fmt.Errorf("response is not JSON: %w", err)
	}
	for _, key := range strings.Split(path, ".") {
		obj, ok := value.(map[string]interface{})
		if !ok {
			return fmt.Errorf("%s: %q is not an object", path, key)
		}
		value = obj[key]
	}
	if got := fmt.Sprint(value); got != expected {
		return fmt.Errorf("expected %s to be %q, got %q", path, expected, got)
	}
	return nil
}

func (s *StepsContext) theResponseShouldListEntries(count int) error {
	var entries []json.RawMessage
	if err := json.Unmarshal(s.responseBody, &entries); err != nil {
		return fmt.Errorf("response is not a JSON list: %w", err)
	}
	if len(entries) != count {
		return fmt.Errorf("expected %d entries, got %d", count, len(entries))
	}
	return nil
}

// Database steps

func (s *StepsContext) theDatabaseShouldHoldBatches(count int) error {
	var n int64
	if err := s.tc.DB.Model(&model.Batch{}).Count(&n).Error; err != nil {
		return err
	}
	if int(n) != count {
		return fmt.Errorf("expected %d batches in the database, got %d", count, n)
	}
	return nil
}
