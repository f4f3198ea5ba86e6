package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// TaskTypeLedgerIntegrity is the task type for the nightly balance scan.
const TaskTypeLedgerIntegrity = "ledger:integrity"

// NewLedgerIntegrityTask constructs the scheduled integrity task.
func NewLedgerIntegrityTask() *asynq.Task {
	return asynq.NewTask(TaskTypeLedgerIntegrity, nil)
}

// LedgerIntegrityJob runs the posted-ledger balance scan.
type LedgerIntegrityJob struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewLedgerIntegrityJob constructs the job.
func NewLedgerIntegrityJob(pool *pgxpool.Pool, logger *slog.Logger) *LedgerIntegrityJob {
	return &LedgerIntegrityJob{pool: pool, logger: logger}
}

// Handle processes TaskTypeLedgerIntegrity tasks.
func (j *LedgerIntegrityJob) Handle(ctx context.Context, t *asynq.Task) error {
	return RunLedgerIntegrityCheck(ctx, j.pool, j.logger)
}

// RunLedgerIntegrityCheck verifies that posted debits equal posted credits
// across the whole ledger and logs any drift. Read only.
func RunLedgerIntegrityCheck(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	var debit, credit decimal.Decimal
	err := pool.QueryRow(ctx, `SELECT COALESCE(SUM(l.debit),0), COALESCE(SUM(l.credit),0)
FROM journal_lines l
JOIN journal_entries e ON e.id = l.journal_id
WHERE e.status = 'POSTED'`).Scan(&debit, &credit)
	if err != nil {
		return err
	}
	if !debit.Equal(credit) {
		logger.Error("ledger integrity drift",
			slog.String("totalDebit", debit.String()),
			slog.String("totalCredit", credit.String()),
			slog.String("difference", debit.Sub(credit).String()),
		)
		return nil
	}
	logger.Info("ledger integrity check passed", slog.String("total", debit.String()))
	return nil
}
