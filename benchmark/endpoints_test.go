package benchmark

import (
	"net/http"
	"os"
	"strings"
	"testing"
)

// baseURL returns the server under benchmark, skipping when none is set.
func baseURL(b *testing.B) string {
	url := os.Getenv("MARATHON_BENCH_URL")
	if url == "" {
		b.Skip("Set MARATHON_BENCH_URL to benchmark a running server.")
	}
	return strings.TrimSuffix(url, "/")
}

func BenchmarkReadEndpoints(b *testing.B) {
	base := baseURL(b)

	for _, path := range []string{"/health", "/api/stats", "/api/history"} {
		b.Run("GET "+path, func(b *testing.B) {
			b.ReportAllocs()
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				resp, err := http.Get(base + path)
				if err != nil {
					b.Fatal(err)
				}
				_ = resp.Body.Close()
			}
		})
	}
}

func BenchmarkGenerateLabels(b *testing.B) {
	base := baseURL(b)
	body := `{"serials":["HEXP0001","HEXP0002","HEXP0003","HEXP0004"]}`

	b.Run("POST /api/generate-labels", func(b *testing.B) {
		b.ReportAllocs()
		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			resp, err := http.Post(base+"/api/generate-labels", "application/json", strings.NewReader(body))
			if err != nil {
				b.Fatal(err)
			}
			_ = resp.Body.Close()
		}
	})
}
