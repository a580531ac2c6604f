package postgresadapter

import (
	"encoding/json"
	"strings"
	"time"

	"votecore/contexts/elections/tally-service/domain/entities"

	"github.com/lib/pq"
)

type electionModel struct {
	ElectionID   string         `gorm:"column:election_id;primaryKey"`
	CandidateIDs pq.StringArray `gorm:"column:candidate_ids;type:text[]"`
	SeatsToFill  int            `gorm:"column:seats_to_fill"`
	Status       string         `gorm:"column:status"`
	UpdatedAt    time.Time      `gorm:"column:updated_at"`
}

func (electionModel) TableName() string {
	return "tally_elections"
}

func electionModelFromEntity(election entities.Election) electionModel {
	row := electionModel{
		ElectionID:   strings.TrimSpace(election.ElectionID),
		CandidateIDs: pq.StringArray(append([]string(nil), election.CandidateIDs...)),
		SeatsToFill:  election.SeatsToFill,
		Status:       string(election.Status),
		UpdatedAt:    election.UpdatedAt.UTC(),
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = time.Now().UTC()
	}
	return row
}

func (m electionModel) toEntity() entities.Election {
	return entities.Election{
		ElectionID:   m.ElectionID,
		CandidateIDs: append([]string(nil), m.CandidateIDs...),
		SeatsToFill:  m.SeatsToFill,
		Status:       entities.ElectionStatus(m.Status),
		UpdatedAt:    m.UpdatedAt.UTC(),
	}
}

type tokenHashModel struct {
	ElectionID   string     `gorm:"column:election_id;primaryKey"`
	TokenHash    string     `gorm:"column:token_hash;primaryKey;size:64"`
	Used         bool       `gorm:"column:used;not null;default:false"`
	RegisteredAt time.Time  `gorm:"column:registered_at"`
	UsedAt       *time.Time `gorm:"column:used_at"`
}

func (tokenHashModel) TableName() string {
	return "tally_token_hashes"
}

func (m tokenHashModel) toEntity() entities.TokenHashRecord {
	record := entities.TokenHashRecord{
		ElectionID:   m.ElectionID,
		TokenHash:    m.TokenHash,
		Used:         m.Used,
		RegisteredAt: m.RegisteredAt.UTC(),
	}
	if m.UsedAt != nil {
		usedAt := m.UsedAt.UTC()
		record.UsedAt = &usedAt
	}
	return record
}

// ballotModel keeps the token hash only to enforce one ballot per token at
// the storage layer. Nothing reads it back out.
type ballotModel struct {
	BallotID    string         `gorm:"column:ballot_id;primaryKey"`
	ElectionID  string         `gorm:"column:election_id;uniqueIndex:ux_tally_ballots_token,priority:1;index"`
	TokenHash   string         `gorm:"column:token_hash;uniqueIndex:ux_tally_ballots_token,priority:2;size:64"`
	Preferences pq.StringArray `gorm:"column:preferences;type:text[]"`
	Weight      string         `gorm:"column:weight"`
	SubmittedAt time.Time      `gorm:"column:submitted_at"`
}

func (ballotModel) TableName() string {
	return "tally_ballots"
}

func ballotModelFromEntity(ballot entities.Ballot) ballotModel {
	weight := strings.TrimSpace(ballot.Weight)
	if weight == "" {
		weight = entities.DefaultBallotWeight
	}
	return ballotModel{
		BallotID:    strings.TrimSpace(ballot.BallotID),
		ElectionID:  strings.TrimSpace(ballot.ElectionID),
		TokenHash:   strings.TrimSpace(ballot.TokenHash),
		Preferences: pq.StringArray(append([]string(nil), ballot.Preferences...)),
		Weight:      weight,
		SubmittedAt: ballot.SubmittedAt.UTC(),
	}
}

func (m ballotModel) toEntity() entities.Ballot {
	return entities.Ballot{
		BallotID:    m.BallotID,
		ElectionID:  m.ElectionID,
		Preferences: append([]string(nil), m.Preferences...),
		Weight:      m.Weight,
		SubmittedAt: m.SubmittedAt.UTC(),
	}
}

type resultModel struct {
	ElectionID  string         `gorm:"column:election_id;primaryKey"`
	SeatsToFill int            `gorm:"column:seats_to_fill"`
	Quota       string         `gorm:"column:quota"`
	TotalWeight string         `gorm:"column:total_weight"`
	BallotCount int            `gorm:"column:ballot_count"`
	Winners     pq.StringArray `gorm:"column:winners;type:text[]"`
	Rounds      int            `gorm:"column:rounds"`
	Trace       []byte         `gorm:"column:trace;type:jsonb"`
	TabulatedAt time.Time      `gorm:"column:tabulated_at"`
}

func (resultModel) TableName() string {
	return "tally_results"
}

func resultModelFromEntity(result entities.ElectionResult) (resultModel, error) {
	trace, err := json.Marshal(result.Trace)
	if err != nil {
		return resultModel{}, err
	}
	return resultModel{
		ElectionID:  strings.TrimSpace(result.ElectionID),
		SeatsToFill: result.SeatsToFill,
		Quota:       result.Quota,
		TotalWeight: result.TotalWeight,
		BallotCount: result.BallotCount,
		Winners:     pq.StringArray(append([]string(nil), result.Winners...)),
		Rounds:      result.Rounds,
		Trace:       trace,
		TabulatedAt: result.TabulatedAt.UTC(),
	}, nil
}

func (m resultModel) toEntity() (entities.ElectionResult, error) {
	var trace []string
	if len(m.Trace) > 0 {
		if err := json.Unmarshal(m.Trace, &trace); err != nil {
			return entities.ElectionResult{}, err
		}
	}
	return entities.ElectionResult{
		ElectionID:  m.ElectionID,
		SeatsToFill: m.SeatsToFill,
		Quota:       m.Quota,
		TotalWeight: m.TotalWeight,
		BallotCount: m.BallotCount,
		Winners:     append([]string(nil), m.Winners...),
		Rounds:      m.Rounds,
		Trace:       trace,
		TabulatedAt: m.TabulatedAt.UTC(),
	}, nil
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload;type:jsonb"`
	Status       string     `gorm:"column:status;index"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	SentAt       *time.Time `gorm:"column:sent_at"`
}

func (outboxModel) TableName() string {
	return "tally_outbox"
}

type eventDedupModel struct {
	EventID     string    `gorm:"column:event_id;primaryKey"`
	PayloadHash string    `gorm:"column:payload_hash"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
	ProcessedAt time.Time `gorm:"column:processed_at"`
}

func (eventDedupModel) TableName() string {
	return "tally_event_dedup"
}
