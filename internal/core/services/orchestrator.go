package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/vncsmyrnk/elections/internal/core/domain"
	"github.com/vncsmyrnk/elections/internal/core/ports"
)

// Dependencies are the collaborators shared by every election use case.
type Dependencies struct {
	Elections      ports.ElectionRepository
	Candidates     ports.CandidateRepository
	EligibleVoters ports.EligibleVoterRepository
	Users          ports.UserRepository
	Ballots        ports.BallotRepository
	Keys           ports.KeyService
	Clock          ports.Clock
	IDGen          ports.IDGenerator
	Logger         *slog.Logger
}

type orchestrator struct {
	deps   Dependencies
	logger *slog.Logger
}

func newOrchestrator(deps Dependencies) orchestrator {
	return orchestrator{deps: deps, logger: ResolveLogger(deps.Logger)}
}

func (o orchestrator) now() time.Time {
	if o.deps.Clock != nil {
		return o.deps.Clock.Now().UTC()
	}
	return time.Now().UTC()
}

func (o orchestrator) newID() uuid.UUID {
	if o.deps.IDGen != nil {
		return o.deps.IDGen.NewID()
	}
	return uuid.New()
}

func (o orchestrator) loadElection(ctx context.Context, id uuid.UUID) (*domain.Election, error) {
	election, err := o.deps.Elections.GetElectionByID(ctx, id)
	if err != nil {
		return nil, storageError(err)
	}
	return election, nil
}

// storageError keeps domain errors raised by repositories and hides anything
// else behind an INTERNAL error.
func storageError(err error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	return domain.WrapError(domain.CodeInternal, "election storage failure", err)
}

func isOutcomeUnknown(err error) bool {
	return errors.Is(err, ports.ErrKeyServiceTimeout) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}

func (o orchestrator) upstreamError(op string, electionID uuid.UUID, err error) error {
	if isOutcomeUnknown(err) {
		o.logger.Error("key service outcome unknown; manual reconciliation required",
			"event", "election_key_service_outcome_unknown",
			"module", logModule,
			"layer", "application",
			"operation", op,
			"election_id", electionID.String(),
			"error", err.Error(),
		)
		return domain.WrapError(domain.CodeUpstreamFailure, domain.ErrKeyServiceOutcomeUnknown.Message, err)
	}
	o.logger.Warn("key service call failed",
		"event", "election_key_service_failed",
		"module", logModule,
		"layer", "application",
		"operation", op,
		"election_id", electionID.String(),
		"error", err.Error(),
	)
	return domain.WrapError(domain.CodeUpstreamFailure, fmt.Sprintf("key service %s failed", op), err)
}

// sagaStep spans the key service and the local store. remote runs first,
// local commits second, and compensate undoes remote when local fails. A nil
// remote makes the step a plain local commit.
type sagaStep struct {
	name       string
	electionID uuid.UUID
	remote     func(ctx context.Context) error
	local      func(ctx context.Context) error
	compensate func(ctx context.Context) error
}

func (o orchestrator) runSaga(ctx context.Context, step sagaStep) error {
	if step.remote != nil {
		if err := step.remote(ctx); err != nil {
			return o.upstreamError(step.name, step.electionID, err)
		}
	}

	err := step.local(ctx)
	if err == nil {
		return nil
	}
	localErr := storageError(err)
	if step.remote == nil || step.compensate == nil {
		return localErr
	}

	// The outer request may already be gone; compensation must still run.
	if cerr := step.compensate(context.WithoutCancel(ctx)); cerr != nil {
		o.logger.Error("saga compensation failed; local and key service state disagree",
			"event", "election_saga_compensation_failed",
			"module", logModule,
			"layer", "application",
			"operation", step.name,
			"election_id", step.electionID.String(),
			"error", err.Error(),
			"compensation_error", cerr.Error(),
		)
		return domain.WrapError(domain.CodeCompensationFailed,
			fmt.Sprintf("%s failed and its key service side effect could not be undone", step.name),
			errors.Join(err, cerr),
		)
	}
	o.logger.Warn("saga compensated after local commit failure",
		"event", "election_saga_compensated",
		"module", logModule,
		"layer", "application",
		"operation", step.name,
		"election_id", step.electionID.String(),
		"error", err.Error(),
	)
	return localErr
}

// destroyKeysStep destroys the election keys remotely, hands the destroy
// schedule to commit, and restores the keys if commit fails.
func (o orchestrator) destroyKeysStep(name string, electionID uuid.UUID, commit func(ctx context.Context, destroyed *ports.KeysDestroyInfo) error) sagaStep {
	var destroyed *ports.KeysDestroyInfo
	return sagaStep{
		name:       name,
		electionID: electionID,
		remote: func(ctx context.Context) error {
			res, err := o.deps.Keys.DestroyKeys(ctx, electionID)
			if err != nil {
				return err
			}
			destroyed = &ports.KeysDestroyInfo{At: o.now(), Duration: res.DestroyScheduledDuration}
			o.logger.Info("election keys destroy scheduled",
				"event", "election_keys_destroy_scheduled",
				"module", logModule,
				"layer", "application",
				"operation", name,
				"election_id", electionID.String(),
				"destroy_at", humanize.Time(destroyed.At.Add(destroyed.Duration)),
			)
			return nil
		},
		local: func(ctx context.Context) error {
			return commit(ctx, destroyed)
		},
		compensate: func(ctx context.Context) error {
			return o.deps.Keys.RestoreKeys(ctx, electionID)
		},
	}
}

// localStep wraps a commit that needs no key service call.
func localStep(name string, electionID uuid.UUID, commit func(ctx context.Context, destroyed *ports.KeysDestroyInfo) error) sagaStep {
	return sagaStep{
		name:       name,
		electionID: electionID,
		local: func(ctx context.Context) error {
			return commit(ctx, nil)
		},
	}
}

// keysStep picks between destroying keys as part of the commit or committing
// alone.
func (o orchestrator) keysStep(name string, electionID uuid.UUID, destroy bool, commit func(ctx context.Context, destroyed *ports.KeysDestroyInfo) error) sagaStep {
	if destroy {
		return o.destroyKeysStep(name, electionID, commit)
	}
	return localStep(name, electionID, commit)
}

// holdsKeys reports whether the key service may still hold material for the
// election. Onsite-only elections never take part in key destruction.
func holdsKeys(e *domain.Election) bool {
	return e.Type != domain.ElectionTypeOnsite && e.KeysStatus != domain.KeysStatusDestroyed
}
