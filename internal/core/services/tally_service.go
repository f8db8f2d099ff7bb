package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/elections/internal/core/ports"
)

type tallyService struct {
	orchestrator
	results ports.ResultService
}

func NewTallyService(deps Dependencies, results ports.ResultService) ports.TallyService {
	return &tallyService{
		orchestrator: newOrchestrator(deps),
		results:      results,
	}
}

// CountAllPendingElections asks the key service to count every election
// whose voting closed without an online result yet. Each election is
// counted on its own goroutine and every failure is reported.
func (s *tallyService) CountAllPendingElections(ctx context.Context) error {
	elections, err := s.deps.Elections.ListElectionsAwaitingCount(ctx, s.now())
	if err != nil {
		return fmt.Errorf("failed to fetch elections awaiting count: %w", err)
	}

	var wg sync.WaitGroup
	errChan := make(chan error, len(elections))

	for _, election := range elections {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			if _, err := s.results.CountBallots(ctx, id); err != nil {
				errChan <- fmt.Errorf("failed to count election %s: %w", id, err)
			}
		}(election.ID)
	}

	wg.Wait()
	close(errChan)

	var errs []error
	for err := range errChan {
		errs = append(errs, err)
	}

	s.logger.Info("pending elections counted",
		"event", "election_batch_count_finished",
		"module", logModule,
		"layer", "application",
		"elections", len(elections),
		"failures", len(errs),
	)
	return errors.Join(errs...)
}
