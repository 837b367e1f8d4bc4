package invoices

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ledgerflow/models"
)

const (
	defaultPrefix = "INV-"
	defaultSeed   = 1000
	maxSeedTries  = 3
)

var trailingDigits = regexp.MustCompile(`^(.*?)(\d+)$`)

var errSequence = errors.New("invoice sequence unavailable")

// nextNumber increments the workspace counter and formats the new number.
// It must run on the transaction that inserts the invoice.
func nextNumber(tx *gorm.DB, workspaceID string) (string, error) {
	for i := 0; i < maxSeedTries; i++ {
		res := tx.Model(&models.InvoiceSequence{}).
			Where("workspace_id = ?", workspaceID).
			Updates(map[string]any{
				"last_value": gorm.Expr("last_value + ?", 1),
				"updated_at": time.Now().UTC(),
			})
		if res.Error != nil {
			return "", fmt.Errorf("increment sequence: %w", res.Error)
		}
		if res.RowsAffected == 1 {
			var seq models.InvoiceSequence
			if err := tx.Where("workspace_id = ?", workspaceID).Take(&seq).Error; err != nil {
				return "", fmt.Errorf("read sequence: %w", err)
			}
			return formatNumber(seq.Prefix, seq.Width, seq.LastValue), nil
		}

		seed, err := seedSequence(tx, workspaceID)
		if err != nil {
			return "", err
		}
		if err := insertSeed(tx, seed); err != nil {
			return "", err
		}
	}
	return "", errSequence
}

// insertSeed stores a new counter row. A row inserted first by a concurrent
// creator is kept and the caller's next pass increments it.
func insertSeed(tx *gorm.DB, seed models.InvoiceSequence) error {
	err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error
	if err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("seed sequence: %w", err)
	}
	return nil
}

// seedSequence starts the counter from the latest invoice number in the
// workspace, or INV-1000 when there is none to continue from.
func seedSequence(tx *gorm.DB, workspaceID string) (models.InvoiceSequence, error) {
	seq := models.InvoiceSequence{
		WorkspaceID: workspaceID,
		Prefix:      defaultPrefix,
		LastValue:   defaultSeed,
		UpdatedAt:   time.Now().UTC(),
	}

	var latest models.Invoice
	err := tx.Select("number").
		Where("workspace_id = ?", workspaceID).
		Order("created_at DESC").
		Take(&latest).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return seq, nil
		}
		return seq, fmt.Errorf("latest invoice: %w", err)
	}

	prefix, width, value, ok := parseNumber(latest.Number)
	if !ok {
		return seq, nil
	}
	seq.Prefix, seq.Width, seq.LastValue = prefix, width, value
	return seq, nil
}

func parseNumber(number string) (prefix string, width int, value int64, ok bool) {
	m := trailingDigits.FindStringSubmatch(number)
	if m == nil {
		return "", 0, 0, false
	}
	n, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil {
		return "", 0, 0, false
	}
	return m[1], len(m[2]), n, true
}

func formatNumber(prefix string, width int, value int64) string {
	return fmt.Sprintf("%s%0*d", prefix, width, value)
}
