package audit

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestStoreSave(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	store := NewStoreWithDB(db)

	event := BatchEvent{
		BatchID: "b-1",
		Phase:   BatchStarted,
		Product: "MLS-AB",
		Serials: 4,
	}

	mock.ExpectExec(`INSERT INTO messages`).
		WithArgs(
			FacilityUser,      // facility
			int(SeverityInfo), // severity
			sqlmock.AnyArg(),  // timestamp
			sqlmock.AnyArg(),  // hostname
			"marathon",        // appname
			sqlmock.AnyArg(),  // procid
			"batch",           // msgid
			sqlmock.AnyArg(),  // sdata (JSON)
			sqlmock.AnyArg(),  // message
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = store.Save(event)
	if err != nil {
		t.Errorf("Save() error = %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestStoreSaveFailedLogin(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	store := NewStoreWithDB(db)

	event := LoginEvent{
		BatchID:      "b-1",
		Operator:     "operator@example.com",
		ErrorMessage: "invalid email or password",
	}

	mock.ExpectExec(`INSERT INTO messages`).
		WithArgs(
			FacilityAuthPriv,
			int(SeverityWarning), // Failed logins have warning severity
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
			"marathon",
			sqlmock.AnyArg(),
			"erp-login",
			sqlmock.AnyArg(),
			"operator@example.com failed to log in to the ERP: invalid email or password",
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = store.Save(event)
	if err != nil {
		t.Errorf("Save() error = %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestStoreNilDB(t *testing.T) {
	store := &Store{db: nil}

	// Should not error when db is nil
	err := store.Save(VerifyEvent{Serials: 1, Passed: 1})
	if err != nil {
		t.Errorf("Save() with nil db should not error, got: %v", err)
	}
}

func TestStoreClose(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	store := NewStoreWithDB(db)

	mock.ExpectClose()

	err = store.Close()
	if err != nil {
		t.Errorf("Close() error = %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestStoreCloseNilDB(t *testing.T) {
	store := &Store{db: nil}

	err := store.Close()
	if err != nil {
		t.Errorf("Close() with nil db should not error, got: %v", err)
	}
}

func TestStoreWithoutURL(t *testing.T) {
	t.Setenv("AUDIT_DATABASE_URL", "")

	store, err := NewStore()
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if store != nil {
		t.Error("Expected nil store without AUDIT_DATABASE_URL")
	}
}
