package world

import (
	"context"
	"sync"

	"github.com/respp/astrade-world/internal/core/indexer"
	"github.com/respp/astrade-world/internal/core/observability/log"
)

// Relay forwards system calls to the externally injected signing
// capability. It owns no keys and never retries; the wallet connection is
// a failure domain of its own, independent of the indexer connection.
type Relay struct {
	source ClientSource
	logger log.Log

	mu     sync.RWMutex
	signer Signer
}

func NewRelay(source ClientSource, logger log.Log) *Relay {
	return &Relay{
		source: source,
		logger: logger.With(log.String("component", "transaction_relay")),
	}
}

// SetSigner installs or replaces the injected signing capability. Passing
// nil removes it.
func (r *Relay) SetSigner(s Signer) {
	r.mu.Lock()
	r.signer = s
	r.mu.Unlock()
}

// SubmitCall relays one system call through the signer.
func (r *Relay) SubmitCall(ctx context.Context, call SystemCall) (TransactionResult, error) {
	signer, err := r.availableSigner()
	if err != nil {
		return TransactionResult{}, err
	}
	if err = checkCallShape(call); err != nil {
		return TransactionResult{}, err
	}

	result, err := signer.ExecuteTransaction(ctx, call.ContractAddress, call.Entrypoint, call.Calldata)
	if err != nil {
		r.logger.Warn("Transaction rejected",
			log.String("contract", call.ContractAddress),
			log.String("entrypoint", call.Entrypoint),
			log.Error(err))
		return TransactionResult{}, WrapError(KindTransactionFailed, "execute system call", err)
	}

	r.logger.Info("Transaction submitted",
		log.String("entrypoint", call.Entrypoint),
		log.String("tx_hash", result.TransactionHash))
	return result, nil
}

// SubmitBatch relays a batch of system calls. With a native backend all
// calls go out as one atomic transaction. With a restricted backend the
// calls run sequentially and only the first call's result is returned, a
// documented limitation of that mode.
func (r *Relay) SubmitBatch(ctx context.Context, calls []SystemCall) (TransactionResult, error) {
	signer, err := r.availableSigner()
	if err != nil {
		return TransactionResult{}, err
	}
	if len(calls) == 0 {
		return TransactionResult{}, NewError(KindTransactionFailed, "empty batch")
	}
	for _, call := range calls {
		if err = checkCallShape(call); err != nil {
			return TransactionResult{}, err
		}
	}

	if r.restrictedBackend() {
		return r.submitSequential(ctx, signer, calls)
	}

	result, err := signer.ExecuteBatch(ctx, calls)
	if err != nil {
		r.logger.Warn("Batch transaction rejected", log.Int("calls", len(calls)), log.Error(err))
		return TransactionResult{}, WrapError(KindTransactionFailed, "execute batch", err)
	}

	r.logger.Info("Batch transaction submitted",
		log.Int("calls", len(calls)),
		log.String("tx_hash", result.TransactionHash))
	return result, nil
}

// submitSequential is the restricted-mode batch path: one transaction per
// call, first result wins, first failure aborts the rest.
func (r *Relay) submitSequential(ctx context.Context, signer Signer, calls []SystemCall) (TransactionResult, error) {
	var first TransactionResult
	for i, call := range calls {
		result, err := signer.ExecuteTransaction(ctx, call.ContractAddress, call.Entrypoint, call.Calldata)
		if err != nil {
			r.logger.Warn("Sequential batch aborted",
				log.Int("failed_at", i),
				log.Error(err))
			return TransactionResult{}, WrapError(KindTransactionFailed, "execute batch call", err)
		}
		if i == 0 {
			first = result
		}
	}

	r.logger.Info("Sequential batch submitted",
		log.Int("calls", len(calls)),
		log.String("first_tx_hash", first.TransactionHash))
	return first, nil
}

func (r *Relay) availableSigner() (Signer, error) {
	r.mu.RLock()
	signer := r.signer
	r.mu.RUnlock()

	if signer == nil || !signer.Available() {
		return nil, NewError(KindWalletNotConnected, "no signing capability injected")
	}
	return signer, nil
}

// restrictedBackend reports whether the active client runs in restricted
// mode. With no active client the atomic path is used; the wallet does
// not depend on the indexer connection.
func (r *Relay) restrictedBackend() bool {
	client, ok := r.source.ActiveClient()
	return ok && client.Mode() == indexer.ModeRestricted
}

func checkCallShape(call SystemCall) error {
	if call.ContractAddress == "" || call.Entrypoint == "" {
		return NewError(KindTransactionFailed, "system call requires contract address and entrypoint")
	}
	return nil
}
