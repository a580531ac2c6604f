package tokenissuer

import (
	"log/slog"

	httpadapter "votecore/contexts/elections/token-issuer/adapters/http"
	"votecore/contexts/elections/token-issuer/adapters/memory"
	"votecore/contexts/elections/token-issuer/application/commands"
	"votecore/contexts/elections/token-issuer/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Store   *memory.Store
}

type Dependencies struct {
	Registrar ports.RegistrarClient
	Ledger    ports.IssuanceLedger
	Tokens    ports.TokenSource
	Clock     ports.Clock
	Logger    *slog.Logger
}

func NewModule(deps Dependencies) Module {
	return Module{
		Handler: httpadapter.Handler{
			IssueToken: commands.IssueTokenUseCase{
				Registrar: deps.Registrar,
				Ledger:    deps.Ledger,
				Tokens:    deps.Tokens,
				Clock:     deps.Clock,
				Logger:    deps.Logger,
			},
			Logger: deps.Logger,
		},
	}
}

// NewInMemoryModule keeps the issuance ledger in process. The registrar is
// still remote.
func NewInMemoryModule(registrar ports.RegistrarClient, logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Registrar: registrar,
		Ledger:    store,
		Tokens:    store,
		Clock:     store,
		Logger:    logger,
	})
	module.Store = store
	return module
}
