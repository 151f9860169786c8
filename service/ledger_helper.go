package service

import (
	"context"
	"fmt"

	"stakeledger/models"
)

// RecordLedgerEntry records a balance change in the audit ledger. This is the
// single entry point for all ledger writes in the system.
func RecordLedgerEntry(ctx context.Context, uow UnitOfWork, entry *models.LedgerEntry) error {
	if err := uow.LedgerRepository().Record(ctx, entry); err != nil {
		return fmt.Errorf("failed to record ledger entry: %w", err)
	}
	return nil
}

// Helper function to get a pointer to a RelatedType
func relatedTypePtr(rt models.RelatedType) *models.RelatedType {
	return &rt
}
