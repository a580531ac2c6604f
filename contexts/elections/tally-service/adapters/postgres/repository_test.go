package postgresadapter

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"votecore/contexts/elections/tally-service/domain/entities"
	domainerrors "votecore/contexts/elections/tally-service/domain/errors"
	"votecore/contexts/elections/tally-service/ports"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	castElectionID = "election-1"
	castTokenHash  = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"

	selectTokenForUpdate = `SELECT \* FROM "tally_token_hashes" WHERE .*election_id = \$1 AND token_hash = \$2.* FOR UPDATE`
	flipTokenUsed        = `UPDATE "tally_token_hashes" SET "used"=\$1,"used_at"=\$2 WHERE .*used = \$5`
	insertBallot         = `INSERT INTO "tally_ballots"`
	insertOutbox         = `INSERT INTO "tally_outbox"`
)

func newMockRepository(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open gorm: %v", err)
	}
	return NewRepository(db, slog.Default()), mock
}

func castFixture() (entities.Ballot, ports.EventEnvelope) {
	submittedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ballot := entities.Ballot{
		BallotID:    "ballot-1",
		ElectionID:  castElectionID,
		TokenHash:   castTokenHash,
		Preferences: []string{"A", "B"},
		SubmittedAt: submittedAt,
	}
	event := ports.EventEnvelope{
		EventID:       "evt-1",
		EventType:     "election.ballot_cast",
		OccurredAt:    submittedAt,
		SourceService: "tally-service",
		PartitionKey:  castElectionID,
		SchemaVersion: 1,
		Data:          []byte(`{"election_id":"election-1","ballot_id":"ballot-1"}`),
	}
	return ballot, event
}

func tokenRows(used bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"election_id", "token_hash", "used", "registered_at", "used_at"}).
		AddRow(castElectionID, castTokenHash, used, time.Now().UTC(), nil)
}

func expectLockedToken(mock sqlmock.Sqlmock, used bool) {
	mock.ExpectBegin()
	mock.ExpectQuery(selectTokenForUpdate).
		WithArgs(castElectionID, castTokenHash, sqlmock.AnyArg()).
		WillReturnRows(tokenRows(used))
}

func TestCastBallotWithOutboxCommitsInOrder(t *testing.T) {
	repo, mock := newMockRepository(t)
	ballot, event := castFixture()

	expectLockedToken(mock, false)
	mock.ExpectExec(flipTokenUsed).
		WithArgs(true, sqlmock.AnyArg(), castElectionID, castTokenHash, false).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(insertBallot).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(insertOutbox).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.CastBallotWithOutbox(context.Background(), ballot, event); err != nil {
		t.Fatalf("cast failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("statement sequence: %v", err)
	}
}

func TestCastBallotWithOutboxLostCompareAndSwap(t *testing.T) {
	repo, mock := newMockRepository(t)
	ballot, event := castFixture()

	expectLockedToken(mock, false)
	mock.ExpectExec(flipTokenUsed).
		WithArgs(true, sqlmock.AnyArg(), castElectionID, castTokenHash, false).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.CastBallotWithOutbox(context.Background(), ballot, event)
	if !errors.Is(err, domainerrors.ErrTokenAlreadyUsed) {
		t.Fatalf("expected token already used, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("no ballot or outbox row may be written: %v", err)
	}
}

func TestCastBallotWithOutboxUsedTokenSkipsWrites(t *testing.T) {
	repo, mock := newMockRepository(t)
	ballot, event := castFixture()

	expectLockedToken(mock, true)
	mock.ExpectRollback()

	err := repo.CastBallotWithOutbox(context.Background(), ballot, event)
	if !errors.Is(err, domainerrors.ErrTokenAlreadyUsed) {
		t.Fatalf("expected token already used, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("statement sequence: %v", err)
	}
}

func TestCastBallotWithOutboxUnknownToken(t *testing.T) {
	repo, mock := newMockRepository(t)
	ballot, event := castFixture()

	mock.ExpectBegin()
	mock.ExpectQuery(selectTokenForUpdate).
		WillReturnRows(sqlmock.NewRows([]string{"election_id", "token_hash", "used", "registered_at", "used_at"}))
	mock.ExpectRollback()

	err := repo.CastBallotWithOutbox(context.Background(), ballot, event)
	if !errors.Is(err, domainerrors.ErrTokenInvalid) {
		t.Fatalf("expected token invalid, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("statement sequence: %v", err)
	}
}

func TestCastBallotWithOutboxDuplicateBallotRow(t *testing.T) {
	repo, mock := newMockRepository(t)
	ballot, event := castFixture()

	expectLockedToken(mock, false)
	mock.ExpectExec(flipTokenUsed).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(insertBallot).WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	err := repo.CastBallotWithOutbox(context.Background(), ballot, event)
	if !errors.Is(err, domainerrors.ErrTokenAlreadyUsed) {
		t.Fatalf("expected token already used, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("statement sequence: %v", err)
	}
}

func TestCastBallotWithOutboxTransientFailure(t *testing.T) {
	repo, mock := newMockRepository(t)
	ballot, event := castFixture()

	expectLockedToken(mock, false)
	mock.ExpectExec(flipTokenUsed).WillReturnError(&pgconn.PgError{Code: "40001"})
	mock.ExpectRollback()

	err := repo.CastBallotWithOutbox(context.Background(), ballot, event)
	if !errors.Is(err, domainerrors.ErrTransientInfrastructure) {
		t.Fatalf("expected transient infrastructure error, got %v", err)
	}
}
