package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/catenax-ng/exchange-gateway/internal/application"
	"github.com/catenax-ng/exchange-gateway/internal/cache"
	"github.com/catenax-ng/exchange-gateway/internal/config"
	"github.com/catenax-ng/exchange-gateway/internal/domain"
	"github.com/catenax-ng/exchange-gateway/internal/infrastructure/edc"
)

// SubmitStatus is the synchronous outcome of Submit. Accepted only promises
// that the request is durably recorded in state REQUESTED; processing
// continues asynchronously.
type SubmitStatus string

const (
	SubmitAccepted       SubmitStatus = "ACCEPTED"
	SubmitDuplicate      SubmitStatus = "DUPLICATE"
	SubmitUnknownPartner SubmitStatus = "UNKNOWN_PARTNER"
	SubmitBusy           SubmitStatus = "BUSY"
)

type SubmitCommand struct {
	RequestID         string
	PartnerBpnl       string
	OwnMaterialNumber string
	AssetType         domain.AssetType
	Direction         domain.Direction

	// Record carries the business record for outbound exchanges. Left nil,
	// the coordinator falls back to the last known local data.
	Record any

	// Timeout bounds the asynchronous processing of this request. Zero
	// means the configured default.
	Timeout time.Duration
}

// StateView is what status-polling callers get: one of the five request
// states plus, for ERROR, a stable cause code. Never a raw error.
type StateView struct {
	RequestID string
	State     domain.RequestState
	CauseCode string
}

type job struct {
	req     *domain.ExchangeRequest
	record  any
	timeout time.Duration
}

// Coordinator drives every exchange request through its lifecycle. It is
// the only writer of exchange request state; the caches and the scheduler
// are the only shared mutable state it touches, each behind its own
// key-scoped lock.
type Coordinator struct {
	requests     application.RequestRepository
	partners     application.PartnerRegistry
	negotiations *cache.NegotiationCache
	credentials  *cache.CredentialCache
	scheduler    *cache.RefreshScheduler
	backend      application.BackendClient
	transport    application.TransportClient
	mapper       application.PayloadMapper
	records      application.RecordStore
	listener     application.CompletionListener
	logger       *slog.Logger

	requestTimeout time.Duration
	answerTimeout  time.Duration
	backendRetry   config.RetryConfig

	queue   chan job
	workers int
	wg      sync.WaitGroup

	mu      sync.Mutex
	pending map[string]chan []byte
}

func NewCoordinator(
	requests application.RequestRepository,
	partners application.PartnerRegistry,
	negotiations *cache.NegotiationCache,
	credentials *cache.CredentialCache,
	scheduler *cache.RefreshScheduler,
	backend application.BackendClient,
	transport application.TransportClient,
	mapper application.PayloadMapper,
	records application.RecordStore,
	listener application.CompletionListener,
	cfg config.CoordinatorConfig,
	answerTimeout time.Duration,
	backendRetry config.RetryConfig,
	logger *slog.Logger,
) *Coordinator {
	return &Coordinator{
		requests:       requests,
		partners:       partners,
		negotiations:   negotiations,
		credentials:    credentials,
		scheduler:      scheduler,
		backend:        backend,
		transport:      transport,
		mapper:         mapper,
		records:        records,
		listener:       listener,
		logger:         logger,
		requestTimeout: cfg.RequestTimeout,
		answerTimeout:  answerTimeout,
		backendRetry:   backendRetry,
		queue:          make(chan job, cfg.QueueSize),
		workers:        cfg.Workers,
		pending:        make(map[string]chan []byte),
	}
}

// Start launches the worker pool. Workers drain the queue until ctx is
// cancelled; Wait blocks until they have finished.
func (c *Coordinator) Start(ctx context.Context) {
	c.logger.Info("coordinator started", "workers", c.workers, "queue_size", cap(c.queue))
	for range c.workers {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case j := <-c.queue:
					c.process(ctx, j)
				}
			}
		}()
	}
}

func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// Submit registers a new exchange request. The request is durably recorded
// in REQUESTED before Accepted is returned; a full queue yields Busy rather
// than unbounded concurrency.
func (c *Coordinator) Submit(ctx context.Context, cmd SubmitCommand) (SubmitStatus, error) {
	req, err := domain.NewExchangeRequest(cmd.RequestID, cmd.PartnerBpnl, cmd.OwnMaterialNumber, cmd.AssetType, cmd.Direction)
	if err != nil {
		return "", application.NewInvalidInputError(err)
	}

	known, err := c.partners.KnowsPartner(ctx, cmd.PartnerBpnl)
	if err != nil {
		return "", application.NewInternalError(err)
	}
	if !known {
		c.logger.Warn("rejected request from unknown partner",
			"request_id", cmd.RequestID,
			"partner", cmd.PartnerBpnl,
		)
		return SubmitUnknownPartner, nil
	}

	if err := c.requests.Create(ctx, req); err != nil {
		if errors.Is(err, domain.ErrDuplicateRequest) {
			c.logger.Warn("rejected duplicate request",
				"request_id", cmd.RequestID,
				"partner", cmd.PartnerBpnl,
			)
			return SubmitDuplicate, nil
		}
		return "", application.NewInternalError(err)
	}

	timeout := cmd.Timeout
	if timeout <= 0 {
		timeout = c.requestTimeout
	}

	select {
	case c.queue <- job{req: req, record: cmd.Record, timeout: timeout}:
		return SubmitAccepted, nil
	default:
		c.fail(ctx, req, application.NewBusyError())
		return SubmitBusy, nil
	}
}

// OnBackendAnswer completes a pending backend-of-record pull. Late answers
// for requests whose wait has already timed out are rejected.
func (c *Coordinator) OnBackendAnswer(ctx context.Context, ackID string, payload []byte) error {
	c.mu.Lock()
	ch, ok := c.pending[ackID]
	if ok {
		delete(c.pending, ackID)
	}
	c.mu.Unlock()

	if !ok {
		// A known ack without a waiter means the answer arrived after the
		// wait gave up. Log the request it belonged to for diagnosis.
		if req, findErr := c.requests.FindByAckID(ctx, ackID); findErr == nil {
			c.logger.Warn("backend answer arrived too late",
				"ack_id", ackID,
				"request_id", req.RequestID,
				"state", req.State,
			)
		} else {
			c.logger.Warn("backend answer with no pending request", "ack_id", ackID)
		}
		return domain.ErrUnknownAck
	}

	ch <- payload
	return nil
}

// GetState returns the tracked state of a request for status polling.
func (c *Coordinator) GetState(ctx context.Context, requestID string) (*StateView, error) {
	req, err := c.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	view := &StateView{
		RequestID: req.RequestID,
		State:     req.State,
	}
	if req.CauseCode != nil {
		view.CauseCode = *req.CauseCode
	}
	return view, nil
}

// ListByPartner returns the tracked state of every request one partner has
// addressed to us, newest first.
func (c *Coordinator) ListByPartner(ctx context.Context, partnerBpnl string) ([]StateView, error) {
	reqs, err := c.requests.FindByPartner(ctx, partnerBpnl)
	if err != nil {
		return nil, err
	}

	views := make([]StateView, 0, len(reqs))
	for _, req := range reqs {
		view := StateView{
			RequestID: req.RequestID,
			State:     req.State,
		}
		if req.CauseCode != nil {
			view.CauseCode = *req.CauseCode
		}
		views = append(views, view)
	}
	return views, nil
}

func (c *Coordinator) process(ctx context.Context, j job) {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	if err := c.transition(ctx, j.req, j.req.MarkReceipt); err != nil {
		c.fail(ctx, j.req, err)
		return
	}

	var err error
	switch j.req.Direction {
	case domain.DirectionOutbound:
		err = c.processOutbound(ctx, j.req, j.record)
	default:
		// Non-directional asset types carry no direction and are answered
		// the same way as inbound requests.
		err = c.processInbound(ctx, j.req)
	}
	if err != nil {
		c.fail(ctx, j.req, err)
	}
}

// processInbound answers a partner's request: either from a fresh
// backend-of-record pull or from the last known local data, depending on
// the refresh schedule, then delivers the answer through the data plane.
func (c *Coordinator) processInbound(ctx context.Context, req *domain.ExchangeRequest) error {
	known, err := c.partners.KnowsMaterial(ctx, req.PartnerBpnl, req.OwnMaterialNumber)
	if err != nil {
		return application.NewInternalError(err)
	}
	if !known {
		return domain.NewUnknownMaterialError(req.OwnMaterialNumber)
	}

	decision := c.scheduler.ShouldRefreshNow(c.scheduleKey(req), time.Now())

	if err := c.transition(ctx, req, req.MarkWorking); err != nil {
		return err
	}

	var record any
	if decision == cache.DecisionRefresh {
		record, err = c.pullFromBackend(ctx, req)
	} else {
		record, err = c.records.Latest(ctx, req.PartnerBpnl, req.OwnMaterialNumber, req.AssetType, req.Direction)
	}
	if err != nil {
		return err
	}

	wire, err := c.mapper.ToWire(req.AssetType, req.AssetType.SchemaVersion(), record)
	if err != nil {
		return application.NewInternalError(err)
	}

	if err := c.deliver(ctx, req, wire); err != nil {
		return err
	}

	if err := c.records.Store(ctx, req.PartnerBpnl, req.OwnMaterialNumber, req.AssetType, req.Direction, record); err != nil {
		return application.NewInternalError(err)
	}

	return c.complete(ctx, req)
}

// processOutbound reports local data to a partner. COMPLETED requires the
// counterpart's acknowledgement of receipt.
func (c *Coordinator) processOutbound(ctx context.Context, req *domain.ExchangeRequest, record any) error {
	if err := c.transition(ctx, req, req.MarkWorking); err != nil {
		return err
	}

	var err error
	if record == nil {
		record, err = c.records.Latest(ctx, req.PartnerBpnl, req.OwnMaterialNumber, req.AssetType, req.Direction)
		if err != nil {
			return application.NewInternalError(err)
		}
	}

	wire, err := c.mapper.ToWire(req.AssetType, req.AssetType.SchemaVersion(), record)
	if err != nil {
		return application.NewInternalError(err)
	}

	if err := c.deliver(ctx, req, wire); err != nil {
		return err
	}

	return c.complete(ctx, req)
}

// pullFromBackend fires a refresh request at the backend-of-record and
// waits for the answer callback, retrying timeouts up to the attempt limit
// with exponential backoff between attempts.
func (c *Coordinator) pullFromBackend(ctx context.Context, req *domain.ExchangeRequest) (any, error) {
	var lastErr error

	for attempt := 0; attempt < c.backendRetry.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, application.NewBackendTimeoutError(ctx.Err())
			case <-time.After(c.backendRetry.BaseDelay * time.Duration(1<<(attempt-1))):
			}
		}

		ackID, err := c.backend.RequestRefresh(ctx, application.RefreshRequest{
			PartnerBpnl:       req.PartnerBpnl,
			OwnMaterialNumber: req.OwnMaterialNumber,
			AssetType:         req.AssetType,
			Direction:         req.Direction,
			SchemaVersion:     req.AssetType.SchemaVersion(),
		})
		if err != nil {
			lastErr = application.NewBackendTimeoutError(err)
			continue
		}

		req.AttachAck(ackID)
		if err := c.requests.Update(ctx, req); err != nil {
			return nil, application.NewInternalError(err)
		}

		ch := c.registerPending(ackID)

		select {
		case payload := <-ch:
			record, err := c.mapper.FromWire(req.AssetType, req.AssetType.SchemaVersion(), payload)
			if err != nil {
				return nil, application.NewInternalError(err)
			}
			return record, nil
		case <-time.After(c.answerTimeout):
			c.unregisterPending(ackID)
			lastErr = application.NewBackendTimeoutError(fmt.Errorf("no answer for ack %s within %s", ackID, c.answerTimeout))
			c.logger.Warn("backend answer timed out",
				"request_id", req.RequestID,
				"partner", req.PartnerBpnl,
				"asset_type", req.AssetType,
				"ack_id", ackID,
				"attempt", attempt+1,
			)
		case <-ctx.Done():
			c.unregisterPending(ackID)
			return nil, application.NewBackendTimeoutError(ctx.Err())
		}
	}

	return nil, lastErr
}

// deliver pushes a payload to the partner through the data plane,
// negotiating a contract and fetching credentials as needed. A counterpart
// that no longer recognizes the cached contract evicts it and gets exactly
// one renegotiation; rejected credentials get exactly one re-fetch.
func (c *Coordinator) deliver(ctx context.Context, req *domain.ExchangeRequest, wire []byte) error {
	const deliveryAttempts = 2

	dspURL, err := c.partners.DspURL(ctx, req.PartnerBpnl)
	if err != nil {
		return application.NewInternalError(err)
	}

	var lastErr error
	for attempt := 0; attempt < deliveryAttempts; attempt++ {
		contract, err := c.negotiations.GetOrNegotiate(ctx, req.PartnerBpnl, dspURL, req.AssetType)
		if err != nil {
			return application.NewNegotiationFailedError(err)
		}

		credentials, err := c.credentials.GetOrFetch(ctx, contract)
		if err != nil {
			if transportErr, ok := edc.IsTransportError(err); ok && transportErr.UnknownContract() {
				c.negotiations.Invalidate(req.PartnerBpnl, req.AssetType)
				lastErr = application.NewCounterpartRejectedError(err)
				continue
			}
			if svcErr, ok := application.IsServiceError(err); ok && svcErr.Code == application.ErrCodeCredentialExpired {
				// the transfer handed out dead credentials; one re-fetch
				lastErr = err
				continue
			}
			return application.NewNegotiationFailedError(err)
		}

		err = c.transport.Send(ctx, credentials.DataPlaneURL, credentials, wire)
		if err == nil {
			return nil
		}
		lastErr = err

		if transportErr, ok := edc.IsTransportError(err); ok {
			switch {
			case transportErr.UnknownContract():
				c.negotiations.Invalidate(req.PartnerBpnl, req.AssetType)
				c.credentials.Evict(contract.ContractID)
				continue
			case transportErr.StatusCode == 401 || transportErr.StatusCode == 403:
				// data plane no longer accepts the token; treat as expired
				c.credentials.Evict(contract.ContractID)
				continue
			}
		}

		return application.NewCounterpartRejectedError(err)
	}

	if _, ok := application.IsServiceError(lastErr); ok {
		return lastErr
	}
	return application.NewCounterpartRejectedError(lastErr)
}

func (c *Coordinator) scheduleKey(req *domain.ExchangeRequest) cache.ScheduleKey {
	key := cache.ScheduleKey{
		PartnerBpnl:       req.PartnerBpnl,
		OwnMaterialNumber: req.OwnMaterialNumber,
		AssetType:         req.AssetType,
	}
	if req.AssetType.HasDirection() {
		key.Direction = req.Direction
	}
	return key
}

func (c *Coordinator) registerPending(ackID string) chan []byte {
	ch := make(chan []byte, 1)
	c.mu.Lock()
	c.pending[ackID] = ch
	c.mu.Unlock()
	return ch
}

func (c *Coordinator) unregisterPending(ackID string) {
	c.mu.Lock()
	delete(c.pending, ackID)
	c.mu.Unlock()
}

// transition applies a state change and persists it, logging the full
// request key for traceability.
func (c *Coordinator) transition(ctx context.Context, req *domain.ExchangeRequest, apply func() error) error {
	if err := apply(); err != nil {
		return err
	}
	if err := c.requests.Update(ctx, req); err != nil {
		return application.NewInternalError(err)
	}

	c.logger.Info("request state transition",
		"request_id", req.RequestID,
		"partner", req.PartnerBpnl,
		"asset_type", req.AssetType,
		"direction", req.Direction,
		"state", req.State,
	)
	return nil
}

func (c *Coordinator) complete(ctx context.Context, req *domain.ExchangeRequest) error {
	if err := c.transition(ctx, req, req.Complete); err != nil {
		return err
	}
	c.listener.OnCompleted(req)
	return nil
}

// fail records the terminal ERROR state with its stable cause code and
// notifies the completion listener exactly once.
func (c *Coordinator) fail(ctx context.Context, req *domain.ExchangeRequest, cause error) {
	if req.IsTerminal() {
		return
	}

	causeCode := application.CauseCodeFor(cause)
	if err := req.Fail(causeCode); err != nil {
		c.logger.Error("could not record failure",
			"request_id", req.RequestID,
			"error", err,
		)
		return
	}
	// terminal transitions must be durable even when the caller's ctx is gone
	if err := c.requests.Update(context.WithoutCancel(ctx), req); err != nil {
		c.logger.Error("could not persist failure",
			"request_id", req.RequestID,
			"error", err,
		)
	}

	c.logger.Error("request failed",
		"request_id", req.RequestID,
		"partner", req.PartnerBpnl,
		"asset_type", req.AssetType,
		"cause", causeCode,
		"error", cause,
	)
	c.listener.OnError(req, causeCode)
}
