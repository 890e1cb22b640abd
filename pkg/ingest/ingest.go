// Package ingest drives one uploaded statement end to end: parse the file,
// persist every recovered transaction, run the matching policy, and apply
// matches to the ledger. A single bad row never aborts the batch; the upload
// always completes with a summary unless the file itself is unusable.
package ingest

import (
	"context"
	"fmt"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/mofokengkatleho/katlehouniversity/models"
	"github.com/mofokengkatleho/katlehouniversity/pkg/ledger"
	"github.com/mofokengkatleho/katlehouniversity/pkg/match"
	"github.com/mofokengkatleho/katlehouniversity/pkg/reference"
	"github.com/mofokengkatleho/katlehouniversity/pkg/statement"
)

// MaxFileBytes is the upload ceiling, enforced before parsing starts.
const MaxFileBytes = 10 << 20

// defaultWorkers bounds concurrent match decisions within one batch.
const defaultWorkers = 4

type Service struct {
	db     *gorm.DB
	ledger *ledger.Ledger
}

func New(db *gorm.DB, l *ledger.Ledger) *Service {
	return &Service{db: db, ledger: l}
}

// Process ingests one uploaded file. The returned UploadedStatement is
// persisted in all cases, including failures, so the upload history stays
// complete.
func (s *Service) Process(ctx context.Context, fileName string, data []byte) (*models.UploadedStatement, error) {
	stmt := &models.UploadedStatement{
		FileName: fileName,
		FileType: models.FileCSV,
		Status:   models.StatementProcessing,
	}

	if len(data) > MaxFileBytes {
		stmt.MarkFailed(fmt.Sprintf("file is %d bytes, limit is %d", len(data), MaxFileBytes))
		if err := s.db.Create(stmt).Error; err != nil {
			return nil, fmt.Errorf("record failed upload: %w", err)
		}
		return stmt, fmt.Errorf("%w: %d bytes", statement.ErrFileTooLarge, len(data))
	}

	res, parseErr := statement.Parse(fileName, data)
	if res != nil {
		stmt.FileType = fileType(res.Format)
	}
	if parseErr != nil {
		stmt.MarkFailed(parseErr.Error())
		if err := s.db.Create(stmt).Error; err != nil {
			return nil, fmt.Errorf("record failed upload: %w", err)
		}
		return stmt, parseErr
	}

	if err := s.db.Create(stmt).Error; err != nil {
		return nil, fmt.Errorf("record upload: %w", err)
	}
	return s.ingestRows(ctx, stmt, res)
}

// ProcessScanned ingests text recovered from a scanned statement by OCR. The
// upload is recorded with file type IMAGE; row handling is identical to a
// text statement.
func (s *Service) ProcessScanned(ctx context.Context, fileName, text string) (*models.UploadedStatement, error) {
	stmt := &models.UploadedStatement{
		FileName: fileName,
		FileType: models.FileImage,
		Status:   models.StatementProcessing,
	}

	res, parseErr := statement.ParseText(text)
	if parseErr == nil && len(res.Rows) == 0 {
		parseErr = fmt.Errorf("%w: %d rows skipped", statement.ErrNoRows, len(res.Warnings))
	}
	if parseErr != nil {
		stmt.MarkFailed(parseErr.Error())
		if err := s.db.Create(stmt).Error; err != nil {
			return nil, fmt.Errorf("record failed upload: %w", err)
		}
		return stmt, parseErr
	}

	if err := s.db.Create(stmt).Error; err != nil {
		return nil, fmt.Errorf("record upload: %w", err)
	}
	return s.ingestRows(ctx, stmt, res)
}

// ingestRows persists every recovered row, matches credits concurrently, and
// applies the matches through the ledger. Match failures count, they never
// abort.
func (s *Service) ingestRows(ctx context.Context, stmt *models.UploadedStatement, res *statement.Result) (*models.UploadedStatement, error) {
	roster, err := s.activeRoster()
	if err != nil {
		stmt.MarkFailed(err.Error())
		s.db.Save(stmt)
		return stmt, err
	}

	txns := make([]*models.Transaction, 0, len(res.Rows))
	for _, row := range res.Rows {
		txn, err := s.persistRow(stmt.ID, row)
		if err != nil {
			log.Printf("ingest: skip row %q: %v", row.Raw, err)
			stmt.SkippedRows++
			continue
		}
		txns = append(txns, txn)
	}
	stmt.SkippedRows += len(res.Warnings)
	stmt.TotalTransactions = len(txns)

	decisions := make([]match.Decision, len(txns))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(defaultWorkers)
	for i, txn := range txns {
		if txn.Type != models.TypeCredit {
			continue
		}
		g.Go(func() error {
			decisions[i] = match.Decide(*txn, roster)
			return nil
		})
	}
	g.Wait()

	var mu sync.Mutex
	applyG, _ := errgroup.WithContext(ctx)
	applyG.SetLimit(defaultWorkers)
	for i, txn := range txns {
		d := decisions[i]
		if d.Outcome != match.Matched {
			if d.Note != "" {
				s.db.Model(txn).Update("matching_notes", d.Note)
			}
			stmt.UnmatchedCount++
			continue
		}
		applyG.Go(func() error {
			if _, err := s.ledger.Apply(txn, d.Child, true, d.Note); err != nil {
				log.Printf("ingest: apply %s: %v", txn.BankReference, err)
				mu.Lock()
				stmt.UnmatchedCount++
				mu.Unlock()
				return nil
			}
			mu.Lock()
			stmt.MatchedCount++
			mu.Unlock()
			return nil
		})
	}
	applyG.Wait()

	stmt.MarkCompleted()
	if err := s.db.Save(stmt).Error; err != nil {
		return stmt, fmt.Errorf("save upload summary: %w", err)
	}
	return stmt, nil
}

func (s *Service) persistRow(stmtID uint, row statement.Row) (*models.Transaction, error) {
	txn := &models.Transaction{
		BankReference:       statement.BankReference(row.Date, row.AmountCents),
		AmountCents:         row.AmountCents,
		TransactionDate:     row.Date,
		Description:         row.Description,
		SenderName:          row.SenderName,
		Type:                txnType(row.Kind()),
		Status:              models.TxnUnmatched,
		UploadedStatementID: &stmtID,
		RawData:             row.Raw,
	}
	if ref, ok := reference.Extract(row.Description); ok {
		txn.PaymentReference = ref
	} else {
		txn.PaymentReference = truncate(row.Description, 50)
	}
	if err := s.db.Create(txn).Error; err != nil {
		return nil, fmt.Errorf("persist transaction: %w", err)
	}
	return txn, nil
}

// MatchAllUnmatched re-runs the matching policy over every UNMATCHED credit.
// Already-matched transactions are not candidates, so re-running over a fully
// matched backlog moves nothing.
func (s *Service) MatchAllUnmatched(ctx context.Context) (matched, remaining int, err error) {
	roster, err := s.activeRoster()
	if err != nil {
		return 0, 0, err
	}

	var txns []models.Transaction
	err = s.db.Where("status = ? AND type = ?", models.TxnUnmatched, models.TypeCredit).
		Order("transaction_date asc").Find(&txns).Error
	if err != nil {
		return 0, 0, fmt.Errorf("load unmatched: %w", err)
	}

	for i := range txns {
		if ctx.Err() != nil {
			return matched, remaining, ctx.Err()
		}
		d := match.Decide(txns[i], roster)
		if d.Outcome != match.Matched {
			remaining++
			continue
		}
		if _, err := s.ledger.Apply(&txns[i], d.Child, true, d.Note); err != nil {
			log.Printf("ingest: re-match %s: %v", txns[i].BankReference, err)
			remaining++
			continue
		}
		matched++
	}
	return matched, remaining, nil
}

func (s *Service) activeRoster() ([]models.Child, error) {
	var roster []models.Child
	if err := s.db.Where("status = ?", models.StudentActive).Find(&roster).Error; err != nil {
		return nil, fmt.Errorf("load active children: %w", err)
	}
	return roster, nil
}

func fileType(f statement.Format) models.FileType {
	switch f {
	case statement.FormatMarkdown:
		return models.FileMarkdown
	case statement.FormatPDFText:
		return models.FilePDF
	default:
		return models.FileCSV
	}
}

func txnType(k statement.Kind) models.TransactionType {
	switch k {
	case statement.KindDebit:
		return models.TypeDebit
	case statement.KindReversal:
		return models.TypeReversal
	default:
		return models.TypeCredit
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
