// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"

	"github.com/ardanlabs/blocktree/app/services/node/handlers/v1/public"
	"github.com/ardanlabs/blocktree/foundation/blocktree/ledger"
	"github.com/ardanlabs/blocktree/foundation/events"
	"github.com/ardanlabs/blocktree/foundation/nameservice"
	"github.com/ardanlabs/blocktree/foundation/web"
	"go.uber.org/zap"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log    *zap.SugaredLogger
	Ledger *ledger.Ledger
	NS     *nameservice.NameService
	Evts   *events.Events
}

// PublicRoutes binds all the version 1 public routes.
func PublicRoutes(app *web.App, cfg Config) {
	pbl := public.Handlers{
		Log:    cfg.Log,
		Ledger: cfg.Ledger,
		NS:     cfg.NS,
		Evts:   cfg.Evts,
	}

	app.Handle(http.MethodGet, version, "/events", pbl.Events)
	app.Handle(http.MethodGet, version, "/branches/list", pbl.Branches)
	app.Handle(http.MethodGet, version, "/branches/list/:branch", pbl.Branch)
	app.Handle(http.MethodGet, version, "/branches/valid/:branch", pbl.ValidBranch)
	app.Handle(http.MethodGet, version, "/branches/proof/:branch/:block/:tx", pbl.Proof)
	app.Handle(http.MethodPost, version, "/blocks/add/:branch", pbl.AddBlock)
	app.Handle(http.MethodGet, version, "/supply", pbl.Supply)
	app.Handle(http.MethodGet, version, "/difficulty/:branch", pbl.Difficulty)
}
