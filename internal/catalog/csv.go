package catalog

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/matita/storefront/internal/domain"
)

// ExportInventoryCSV renders the product list as a CSV export with the
// back-office column set.
func ExportInventoryCSV(products []domain.Product) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"Nombre", "Precio", "Puntos", "Categoría"}); err != nil {
		return nil, fmt.Errorf("write csv header failed: %w", err)
	}
	for _, p := range products {
		record := []string{
			p.Name,
			strconv.FormatFloat(p.Price, 'f', -1, 64),
			strconv.Itoa(p.Points),
			string(p.Category),
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write csv record failed: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv failed: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportMembersCSV renders the member list as a CSV export.
func ExportMembersCSV(members []domain.User) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"Nombre", "Email", "Puntos", "Es Socio"}); err != nil {
		return nil, fmt.Errorf("write csv header failed: %w", err)
	}
	for _, m := range members {
		record := []string{
			m.Name,
			m.Email,
			strconv.Itoa(m.Points),
			strconv.FormatBool(m.IsMember),
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write csv record failed: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv failed: %w", err)
	}
	return buf.Bytes(), nil
}
