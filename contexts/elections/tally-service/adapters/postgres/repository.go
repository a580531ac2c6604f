package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"votecore/contexts/elections/tally-service/domain/entities"
	domainerrors "votecore/contexts/elections/tally-service/domain/errors"
	"votecore/contexts/elections/tally-service/ports"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending = "pending"
	outboxStatusSent    = "sent"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Migrate creates or updates the tally tables.
func (r *Repository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(
		&electionModel{},
		&tokenHashModel{},
		&ballotModel{},
		&resultModel{},
		&outboxModel{},
		&eventDedupModel{},
	); err != nil {
		return r.logError("tally_repo_migrate_failed", err)
	}
	return nil
}

func (r *Repository) GetElection(ctx context.Context, electionID string) (entities.Election, error) {
	var row electionModel
	err := r.db.WithContext(ctx).
		Where("election_id = ?", strings.TrimSpace(electionID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Election{}, domainerrors.ErrElectionNotFound
		}
		return entities.Election{}, r.logError("tally_repo_get_election_failed", err,
			"election_id", strings.TrimSpace(electionID),
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) UpsertElection(ctx context.Context, election entities.Election) error {
	row := electionModelFromEntity(election)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "election_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"candidate_ids": row.CandidateIDs,
			"seats_to_fill": row.SeatsToFill,
			"status":        row.Status,
			"updated_at":    row.UpdatedAt,
		}),
	}).Create(&row).Error
	if err != nil {
		return r.logError("tally_repo_upsert_election_failed", err, "election_id", row.ElectionID)
	}
	return nil
}

func (r *Repository) SetElectionStatus(
	ctx context.Context,
	electionID string,
	status entities.ElectionStatus,
	updatedAt time.Time,
) error {
	result := r.db.WithContext(ctx).
		Model(&electionModel{}).
		Where("election_id = ?", strings.TrimSpace(electionID)).
		Updates(map[string]any{
			"status":     string(status),
			"updated_at": updatedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("tally_repo_set_election_status_failed", result.Error,
			"election_id", strings.TrimSpace(electionID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrElectionNotFound
	}
	return nil
}

func (r *Repository) RegisterTokenHash(ctx context.Context, record entities.TokenHashRecord) error {
	row := tokenHashModel{
		ElectionID:   strings.TrimSpace(record.ElectionID),
		TokenHash:    strings.TrimSpace(record.TokenHash),
		Used:         false,
		RegisteredAt: record.RegisteredAt.UTC(),
	}
	if row.RegisteredAt.IsZero() {
		row.RegisteredAt = time.Now().UTC()
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "election_id"}, {Name: "token_hash"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return r.logError("tally_repo_register_token_hash_failed", create.Error,
			"election_id", row.ElectionID,
		)
	}
	if create.RowsAffected == 0 {
		return domainerrors.ErrRegistrationConflict
	}
	return nil
}

func (r *Repository) GetTokenHashRecord(ctx context.Context, electionID string, tokenHash string) (entities.TokenHashRecord, error) {
	var row tokenHashModel
	err := r.db.WithContext(ctx).
		Where("election_id = ? AND token_hash = ?", strings.TrimSpace(electionID), strings.TrimSpace(tokenHash)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.TokenHashRecord{}, domainerrors.ErrTokenInvalid
		}
		return entities.TokenHashRecord{}, r.logError("tally_repo_get_token_hash_failed", err,
			"election_id", strings.TrimSpace(electionID),
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) CastBallotWithOutbox(ctx context.Context, ballot entities.Ballot, event ports.EventEnvelope) error {
	outbox, err := newOutboxModel(event)
	if err != nil {
		return r.logError("tally_repo_cast_ballot_marshal_failed", err, "event_id", event.EventID)
	}
	submittedAt := ballot.SubmittedAt.UTC()

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var token tokenHashModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("election_id = ? AND token_hash = ?", ballot.ElectionID, ballot.TokenHash).
			First(&token).
			Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrTokenInvalid
			}
			return err
		}
		if token.Used {
			return domainerrors.ErrTokenAlreadyUsed
		}

		flip := tx.Model(&tokenHashModel{}).
			Where("election_id = ? AND token_hash = ? AND used = ?", ballot.ElectionID, ballot.TokenHash, false).
			Updates(map[string]any{
				"used":    true,
				"used_at": submittedAt,
			})
		if flip.Error != nil {
			return flip.Error
		}
		if flip.RowsAffected == 0 {
			return domainerrors.ErrTokenAlreadyUsed
		}

		row := ballotModelFromEntity(ballot)
		if err := tx.Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				return domainerrors.ErrTokenAlreadyUsed
			}
			return err
		}
		return tx.Create(&outbox).Error
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrTokenInvalid) || errors.Is(err, domainerrors.ErrTokenAlreadyUsed) {
			return err
		}
		return r.logError("tally_repo_cast_ballot_failed", err,
			"election_id", ballot.ElectionID,
			"ballot_id", ballot.BallotID,
		)
	}
	return nil
}

func (r *Repository) ListBallots(ctx context.Context, electionID string) ([]entities.Ballot, error) {
	var rows []ballotModel
	if err := r.db.WithContext(ctx).
		Where("election_id = ?", strings.TrimSpace(electionID)).
		Order("submitted_at ASC, ballot_id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("tally_repo_list_ballots_failed", err,
			"election_id", strings.TrimSpace(electionID),
		)
	}
	items := make([]entities.Ballot, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) GetResult(ctx context.Context, electionID string) (entities.ElectionResult, error) {
	var row resultModel
	err := r.db.WithContext(ctx).
		Where("election_id = ?", strings.TrimSpace(electionID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.ElectionResult{}, domainerrors.ErrResultsNotAvailable
		}
		return entities.ElectionResult{}, r.logError("tally_repo_get_result_failed", err,
			"election_id", strings.TrimSpace(electionID),
		)
	}
	return row.toEntity()
}

func (r *Repository) SaveResultWithOutbox(ctx context.Context, result entities.ElectionResult, event ports.EventEnvelope) error {
	row, err := resultModelFromEntity(result)
	if err != nil {
		return r.logError("tally_repo_save_result_marshal_failed", err, "election_id", result.ElectionID)
	}
	outbox, err := newOutboxModel(event)
	if err != nil {
		return r.logError("tally_repo_save_result_marshal_failed", err, "event_id", event.EventID)
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		create := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "election_id"}},
			DoNothing: true,
		}).Create(&row)
		if create.Error != nil {
			return create.Error
		}
		if create.RowsAffected == 0 {
			return domainerrors.ErrResultsAlreadyPublished
		}
		return tx.Create(&outbox).Error
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrResultsAlreadyPublished) {
			return err
		}
		return r.logError("tally_repo_save_result_failed", err, "election_id", row.ElectionID)
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("tally_repo_list_pending_outbox_failed", err, "limit", limit)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxSent(ctx context.Context, outboxID string, sentAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":  outboxStatusSent,
			"sent_at": sentAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("tally_repo_mark_outbox_sent_failed", result.Error,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrRepositoryInvariantBroke
	}
	return nil
}

func (r *Repository) ReserveEvent(
	ctx context.Context,
	eventID string,
	payloadHash string,
	expiresAt time.Time,
) (bool, error) {
	row := eventDedupModel{
		EventID:     strings.TrimSpace(eventID),
		PayloadHash: strings.TrimSpace(payloadHash),
		ExpiresAt:   expiresAt.UTC(),
		ProcessedAt: time.Now().UTC(),
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return false, r.logError("tally_repo_reserve_event_failed", create.Error,
			"event_id", row.EventID,
		)
	}
	if create.RowsAffected > 0 {
		return false, nil
	}

	var existing eventDedupModel
	if err := r.db.WithContext(ctx).
		Select("payload_hash").
		Where("event_id = ?", row.EventID).
		First(&existing).Error; err != nil {
		return false, r.logError("tally_repo_reserve_event_load_existing_failed", err,
			"event_id", row.EventID,
		)
	}
	if existing.PayloadHash != row.PayloadHash {
		return false, domainerrors.ErrIdempotencyKeyConflict
	}
	return true, nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "elections/tally-service",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("tally repository operation failed", fields...)
	return classify(err)
}

func newOutboxModel(event ports.EventEnvelope) (outboxModel, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return outboxModel{}, err
	}
	row := outboxModel{
		OutboxID:     strings.TrimSpace(event.EventID),
		EventType:    strings.TrimSpace(event.EventType),
		PartitionKey: strings.TrimSpace(event.PartitionKey),
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    event.OccurredAt.UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	return row, nil
}

// classify marks errors a caller may retry with ErrTransientInfrastructure so
// the HTTP layer can answer 503 instead of 500.
func classify(err error) error {
	if err == nil || !isTransient(err) {
		return err
	}
	return fmt.Errorf("%w: %w", domainerrors.ErrTransientInfrastructure, err)
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return true
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "40001", "40P01", "57P01", "57P03":
		return true
	}
	return strings.HasPrefix(pgErr.Code, "08")
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.ElectionRepository = (*Repository)(nil)
var _ ports.TokenRegistry = (*Repository)(nil)
var _ ports.BallotRepository = (*Repository)(nil)
var _ ports.ResultRepository = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
var _ ports.EventDedupStore = (*Repository)(nil)
