package tallyservice

import (
	"log/slog"
	"time"

	httpadapter "votecore/contexts/elections/tally-service/adapters/http"
	"votecore/contexts/elections/tally-service/adapters/memory"
	"votecore/contexts/elections/tally-service/application/commands"
	"votecore/contexts/elections/tally-service/application/queries"
	"votecore/contexts/elections/tally-service/application/workers"
	"votecore/contexts/elections/tally-service/domain/entities"
	"votecore/contexts/elections/tally-service/ports"
)

type Module struct {
	Handler       httpadapter.Handler
	OutboxRelay   workers.OutboxRelay
	ClosedHandler workers.ElectionClosedConsumer
	Store         *memory.Store
}

type Dependencies struct {
	Elections ports.ElectionRepository
	Tokens    ports.TokenRegistry
	Ballots   ports.BallotRepository
	Results   ports.ResultRepository
	Outbox    ports.OutboxRepository
	Dedup     ports.EventDedupStore
	Locker    ports.Locker
	Clock     ports.Clock
	IDGen     ports.IDGenerator

	Publisher  ports.EventPublisher
	Subscriber ports.EventSubscriber

	LockTTL   time.Duration
	MaxRounds int
	Logger    *slog.Logger
}

func NewModule(deps Dependencies) Module {
	tabulate := commands.TabulateElectionUseCase{
		Elections:   deps.Elections,
		Ballots:     deps.Ballots,
		Results:     deps.Results,
		Locker:      deps.Locker,
		Clock:       deps.Clock,
		IDGenerator: deps.IDGen,
		LockTTL:     deps.LockTTL,
		MaxRounds:   deps.MaxRounds,
		Logger:      deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{
			SyncElection: commands.SyncElectionUseCase{
				Elections: deps.Elections,
				Clock:     deps.Clock,
				Logger:    deps.Logger,
			},
			RegisterToken: commands.RegisterTokenUseCase{
				Elections: deps.Elections,
				Tokens:    deps.Tokens,
				Clock:     deps.Clock,
				Logger:    deps.Logger,
			},
			CastBallot: commands.CastBallotUseCase{
				Elections:   deps.Elections,
				Tokens:      deps.Tokens,
				Ballots:     deps.Ballots,
				Clock:       deps.Clock,
				IDGenerator: deps.IDGen,
				Logger:      deps.Logger,
			},
			Tabulate: tabulate,
			GetResults: queries.GetResultsUseCase{
				Results: deps.Results,
				Logger:  deps.Logger,
			},
			Logger: deps.Logger,
		},
		OutboxRelay: workers.OutboxRelay{
			Outbox:    deps.Outbox,
			Publisher: deps.Publisher,
			Clock:     deps.Clock,
			Logger:    deps.Logger,
		},
		ClosedHandler: workers.ElectionClosedConsumer{
			Subscriber: deps.Subscriber,
			Elections:  deps.Elections,
			Dedup:      deps.Dedup,
			Tabulate:   tabulate,
			Clock:      deps.Clock,
			Logger:     deps.Logger,
		},
	}
}

// NewInMemoryModule wires every port to one memory store. Publisher and
// Subscriber stay nil unless the caller sets them on the returned workers.
func NewInMemoryModule(seed []entities.Election, logger *slog.Logger) Module {
	store := memory.NewStore(seed, logger)
	module := NewModule(Dependencies{
		Elections: store,
		Tokens:    store,
		Ballots:   store,
		Results:   store,
		Outbox:    store,
		Dedup:     store,
		Locker:    store,
		Clock:     store,
		IDGen:     store,
		Logger:    logger,
	})
	module.Store = store
	return module
}
