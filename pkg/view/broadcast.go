package view

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"

	"github.com/mosaic-network/walletx/pkg/store"
)

// BroadcastResult reports a successful broadcast. DetectionHeight is set
// only when the caller awaited local detection of the transaction.
type BroadcastResult struct {
	ID              store.TxID `json:"id"`
	DetectionHeight *uint64    `json:"detectionHeight,omitempty"`
}

// TxIDFromPayload computes a transaction's identifying id: the blake2b-256
// content hash of its exact binary encoding.
func TxIDFromPayload(raw []byte) store.TxID {
	return store.TxID(blake2b.Sum256(raw))
}

// BroadcastAndMaybeConfirm submits a transaction payload to the network
// and, when awaitDetection is set, waits until the local store detects it.
//
// The transaction-detection subscription is opened before the submission so
// a confirmation arriving immediately after broadcast cannot be missed. The
// locally computed id must equal the id the network reports for the same
// submission; a mismatch fails with ErrIdentityDisagreement before any
// success is reported.
func (s *Service) BroadcastAndMaybeConfirm(ctx context.Context, raw []byte, awaitDetection bool) (*BroadcastResult, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: no transaction payload supplied", ErrInvalidArgument)
	}

	sub := s.store.Subscribe(store.CategoryTransactions)
	defer sub.Close()

	localID := TxIDFromPayload(raw)

	remoteID, err := s.querier.SubmitTransaction(ctx, raw)
	if err != nil {
		return nil, err
	}
	if remoteID != localID {
		return nil, fmt.Errorf("%w: local id %s, network id %s", ErrIdentityDisagreement, localID, remoteID)
	}

	s.logger.Info("transaction broadcast", zap.String("id", localID.String()))

	if !awaitDetection {
		return &BroadcastResult{ID: localID}, nil
	}

	height, err := consumeUntil(ctx, sub, func(r store.Record) (uint64, bool) {
		if r.Kind == store.KindTransaction && r.Tx.ID == localID {
			return r.Tx.Height, true
		}
		return 0, false
	})
	if err != nil {
		return nil, err
	}

	return &BroadcastResult{ID: localID, DetectionHeight: &height}, nil
}
