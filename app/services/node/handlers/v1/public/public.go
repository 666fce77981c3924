// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ardanlabs/blocktree/business/sys/metrics"
	"github.com/ardanlabs/blocktree/business/sys/validate"
	"github.com/ardanlabs/blocktree/business/web/errs"
	"github.com/ardanlabs/blocktree/foundation/blocktree/database"
	"github.com/ardanlabs/blocktree/foundation/blocktree/ledger"
	"github.com/ardanlabs/blocktree/foundation/events"
	"github.com/ardanlabs/blocktree/foundation/nameservice"
	"github.com/ardanlabs/blocktree/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of blocktree endpoints.
type Handlers struct {
	Log    *zap.SugaredLogger
	Ledger *ledger.Ledger
	NS     *nameservice.NameService
	WS     websocket.Upgrader
	Evts   *events.Events
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return nil
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// Branches returns the identifiers of every branch.
func (h Handlers) Branches(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.Ledger.Branches(), http.StatusOK)
}

// Branch returns the blocks of the specified branch.
func (h Handlers) Branch(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	branchID := web.Param(r, "branch")

	dbBlocks, err := h.Ledger.Branch(branchID)
	if err != nil {
		return err
	}

	blocks := make([]block, len(dbBlocks))
	for i, blk := range dbBlocks {
		blocks[i] = toBlock(blk, h.NS)
	}

	b := branch{
		ID:     branchID,
		Length: len(blocks),
		Blocks: blocks,
	}

	return web.Respond(ctx, w, b, http.StatusOK)
}

// ValidBranch reports whether the specified branch has a consistent chain of
// hashes.
func (h Handlers) ValidBranch(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	branchID := web.Param(r, "branch")

	valid, err := h.Ledger.IsBranchValid(branchID)
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, validity{Branch: branchID, Valid: valid}, http.StatusOK)
}

// AddBlock mines the submitted transactions into the next block of the
// specified branch.
func (h Handlers) AddBlock(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	branchID := web.Param(r, "branch")

	var signedTxs []SignedTx
	if err := web.Decode(r, &signedTxs); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	if len(signedTxs) == 0 {
		return errs.NewTrusted(errors.New("at least one transaction is required"), http.StatusBadRequest)
	}

	if err := validate.CheckSlice(signedTxs); err != nil {
		return err
	}

	trans := make([]database.Tx, len(signedTxs))
	for i, signedTx := range signedTxs {
		dbTx := toDBSignedTx(signedTx)
		if err := dbTx.Validate(); err != nil {
			return err
		}
		trans[i] = dbTx.Tx

		h.Log.Infow("add tran", "traceid", v.TraceID, "tx", dbTx.Tx, "sig", dbTx.SignatureString())
	}

	blk, err := h.Ledger.AddBlock(ctx, trans, branchID)
	if err != nil && blk.Hash == "" {
		return err
	}

	metrics.AddBlock()

	resp := added{
		Block: toBlock(blk, h.NS),
	}

	// The block is stored even though publishing or splitting failed.
	if err != nil {
		h.Log.Errorw("add block", "traceid", v.TraceID, "branch", branchID, "hash", blk.Hash, "ERROR", err)
		resp.Warning = err.Error()
	}

	return web.Respond(ctx, w, resp, http.StatusCreated)
}

// Proof returns the merkle proof that a transaction is part of the specified
// block of the branch.
func (h Handlers) Proof(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	branchID := web.Param(r, "branch")

	number, err := strconv.ParseUint(web.Param(r, "block"), 10, 64)
	if err != nil {
		return errs.NewTrusted(fmt.Errorf("invalid block number: %w", err), http.StatusBadRequest)
	}

	txProof, err := h.Ledger.Proof(branchID, number, web.Param(r, "tx"))
	if err != nil {
		return err
	}

	p := proof{
		Branch:  branchID,
		Block:   number,
		TxProof: txProof,
	}

	return web.Respond(ctx, w, p, http.StatusOK)
}

// Supply returns the total supply created by mining.
func (h Handlers) Supply(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, supply{TotalSupply: h.Ledger.TotalSupply()}, http.StatusOK)
}

// Difficulty returns the difficulty suggested for the next block of the
// specified branch.
func (h Handlers) Difficulty(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	branchID := web.Param(r, "branch")

	d, err := h.Ledger.NextDifficulty(branchID)
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, difficulty{Branch: branchID, Difficulty: d}, http.StatusOK)
}
