package usecases

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"multisig-hub.backend/internal/domain/entities"
	domainerrors "multisig-hub.backend/internal/domain/errors"
)

// The engine below only advises. It never changes chain state; a legal
// action is still a request that the chain may reject.

// IsLegalConfirm decides whether owner may confirm tx given its current confirmations.
func IsLegalConfirm(wallet *entities.MultisigWallet, tx *entities.TransactionRecord, owner common.Address, set entities.ConfirmationSet) entities.Verdict {
	switch {
	case tx.Executed:
		return entities.Deny(entities.ReasonAlreadyExecuted)
	case set.Contains(owner):
		return entities.Deny(entities.ReasonAlreadyConfirmed)
	case !wallet.IsOwner(owner):
		return entities.Deny(entities.ReasonNotAnOwner)
	default:
		return entities.Allow()
	}
}

// IsLegalExecute decides whether owner may trigger the manual execute fallback.
func IsLegalExecute(wallet *entities.MultisigWallet, tx *entities.TransactionRecord, owner common.Address, set entities.ConfirmationSet) entities.Verdict {
	switch {
	case tx.Executed:
		return entities.Deny(entities.ReasonAlreadyExecuted)
	case !wallet.IsOwner(owner):
		return entities.Deny(entities.ReasonNotAnOwner)
	case uint64(set.Count()) < wallet.Required:
		return entities.Deny(entities.ReasonQuorumNotReached)
	default:
		return entities.Allow()
	}
}

// WouldReachQuorum predicts whether owner's confirmation is the one that
// triggers execution. An executed transaction triggers nothing, so it is
// always false there even when the count would qualify.
func WouldReachQuorum(tx *entities.TransactionRecord, owner common.Address, set entities.ConfirmationSet, required uint64) bool {
	if tx.Executed || set.Contains(owner) {
		return false
	}
	return uint64(set.Count())+1 >= required
}

// ProjectedState places tx on PENDING -> READY -> EXECUTED. Executed is
// authoritative; the confirmation count is only a prediction.
func ProjectedState(tx *entities.TransactionRecord, set entities.ConfirmationSet, required uint64) entities.ProjectedState {
	if tx.Executed {
		return entities.StateExecuted
	}
	if uint64(set.Count()) >= required {
		return entities.StateReady
	}
	return entities.StatePending
}

// VerdictError converts a denial into the matching IllegalAction error.
func VerdictError(v entities.Verdict) error {
	if v.Allowed {
		return nil
	}
	switch v.Reason {
	case entities.ReasonAlreadyExecuted:
		return domainerrors.ErrAlreadyExecuted
	case entities.ReasonAlreadyConfirmed:
		return domainerrors.ErrAlreadyConfirmed
	case entities.ReasonNotAnOwner:
		return domainerrors.ErrNotAnOwner
	case entities.ReasonQuorumNotReached:
		return domainerrors.ErrQuorumNotReached
	default:
		return fmt.Errorf("%w: %s", domainerrors.ErrIllegalAction, v.Reason)
	}
}

type ledgerKey struct {
	wallet common.Address
	txID   uint64
}

// StateLedger remembers the highest state observed per transaction so that a
// stale refresh cannot move a transaction backwards. Transitions may be
// observed out of order (PENDING straight to EXECUTED is fine).
type StateLedger struct {
	mu     sync.Mutex
	states map[ledgerKey]entities.ProjectedState
}

// NewStateLedger creates an empty ledger
func NewStateLedger() *StateLedger {
	return &StateLedger{states: make(map[ledgerKey]entities.ProjectedState)}
}

// Observe records state and returns the monotonic state to report.
func (l *StateLedger) Observe(wallet common.Address, txID uint64, state entities.ProjectedState) entities.ProjectedState {
	key := ledgerKey{wallet: wallet, txID: txID}
	l.mu.Lock()
	defer l.mu.Unlock()
	if prev, ok := l.states[key]; ok && prev.Rank() >= state.Rank() {
		return prev
	}
	l.states[key] = state
	return state
}

// Forget drops everything known about a wallet.
func (l *StateLedger) Forget(wallet common.Address) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for k := range l.states {
		if k.wallet == wallet {
			delete(l.states, k)
		}
	}
}
