package ingest_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/punchamoorthee/debtops/internal/domain"
	"github.com/punchamoorthee/debtops/internal/gateway"
	"github.com/punchamoorthee/debtops/internal/ingest"
)

func validFields() map[string]string {
	return map[string]string{
		"name":         "A",
		"governmentId": "123",
		"email":        "a@b.com",
		"debtAmount":   "1,000.50",
		"debtDueDate":  "2024-12-31",
		"debtId":       "D1",
	}
}

func rowWith(overrides map[string]string) gateway.Row {
	fields := validFields()
	for k, v := range overrides {
		if v == "<delete>" {
			delete(fields, k)
			continue
		}
		fields[k] = v
	}
	return gateway.Row{Number: 7, Fields: fields}
}

func TestNormalize_RoundTrip(t *testing.T) {
	debt, rowErr := ingest.Normalize(gateway.Row{Number: 1, Fields: validFields()})
	require.Nil(t, rowErr)
	require.NotNil(t, debt)

	assert.True(t, debt.Amount.Equal(decimal.RequireFromString("1000.50")), "got %s", debt.Amount)
	assert.Equal(t, time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), debt.DueDate)
	assert.Equal(t, "D1", debt.ExternalID)
	assert.Equal(t, "A", debt.HolderName)
	assert.Equal(t, "123", debt.HolderGovernmentID)
	assert.Equal(t, "a@b.com", debt.HolderEmail)
	assert.Equal(t, domain.StatusPending, debt.Status)
	assert.Nil(t, debt.PaidAmount)
	assert.Nil(t, debt.PaidBy)
	assert.Nil(t, debt.PaidAt)
	assert.NoError(t, debt.Validate())
}

func TestNormalize_MissingRequiredFields(t *testing.T) {
	for _, col := range []string{"name", "governmentId", "email", "debtId"} {
		for _, value := range []string{"", "   ", "<delete>"} {
			t.Run(col+"="+value, func(t *testing.T) {
				debt, rowErr := ingest.Normalize(rowWith(map[string]string{col: value}))
				assert.Nil(t, debt)
				require.NotNil(t, rowErr)
				assert.Equal(t, domain.KindValidation, rowErr.Kind)
				assert.Equal(t, 7, rowErr.Row)
				assert.Contains(t, rowErr.Message, col)
			})
		}
	}
}

func TestNormalize_ReportsAllMissingFieldsTogether(t *testing.T) {
	_, rowErr := ingest.Normalize(rowWith(map[string]string{"name": "", "email": ""}))
	require.NotNil(t, rowErr)
	assert.Equal(t, "missing required fields: name, email", rowErr.Message)
}

func TestNormalize_ErrorPrecedence(t *testing.T) {
	tests := []struct {
		name     string
		override map[string]string
		wantKind domain.ErrorKind
		wantMsg  string
	}{
		{
			name:     "missing debt id beats bad amount",
			override: map[string]string{"debtId": "", "debtAmount": "abc"},
			wantKind: domain.KindValidation,
			wantMsg:  "missing required fields: debtId",
		},
		{
			name:     "missing name beats bad date",
			override: map[string]string{"name": "", "debtDueDate": "someday"},
			wantKind: domain.KindValidation,
			wantMsg:  "missing required fields: name",
		},
		{
			name:     "bad amount beats bad date",
			override: map[string]string{"debtAmount": "abc", "debtDueDate": "someday"},
			wantKind: domain.KindParse,
			wantMsg:  "invalid amount: abc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, rowErr := ingest.Normalize(rowWith(tt.override))
			require.NotNil(t, rowErr)
			assert.Equal(t, tt.wantKind, rowErr.Kind)
			assert.Equal(t, tt.wantMsg, rowErr.Message)
		})
	}
}

func TestNormalize_InvalidEmail(t *testing.T) {
	_, rowErr := ingest.Normalize(rowWith(map[string]string{"email": "not-an-email"}))
	require.NotNil(t, rowErr)
	assert.Equal(t, domain.KindValidation, rowErr.Kind)
	assert.Equal(t, "invalid email: not-an-email", rowErr.Message)
	assert.Equal(t, "D1", rowErr.DebtID)
}

func TestNormalize_Amount(t *testing.T) {
	tests := []struct {
		raw      string
		want     string
		wantKind domain.ErrorKind
	}{
		{raw: "1000.50", want: "1000.50"},
		{raw: "324.42", want: "324.42"},
		{raw: "1000", want: "1000"},
		{raw: "R$ 1,234.56", want: "1234.56"},
		{raw: " 12 ", want: "12"},
		{raw: "-5", want: "5"},
		{raw: "abc", wantKind: domain.KindParse},
		{raw: "", wantKind: domain.KindParse},
		{raw: "$.", wantKind: domain.KindParse},
		{raw: "1.2.3", wantKind: domain.KindParse},
		{raw: "0", wantKind: domain.KindValidation},
		{raw: "0.00", wantKind: domain.KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			debt, rowErr := ingest.Normalize(rowWith(map[string]string{"debtAmount": tt.raw}))
			if tt.wantKind != "" {
				assert.Nil(t, debt)
				require.NotNil(t, rowErr)
				assert.Equal(t, tt.wantKind, rowErr.Kind)
				if tt.wantKind == domain.KindParse {
					assert.Equal(t, "invalid amount: "+tt.raw, rowErr.Message)
				}
				return
			}
			require.Nil(t, rowErr)
			assert.True(t, debt.Amount.Equal(decimal.RequireFromString(tt.want)), "got %s", debt.Amount)
		})
	}
}

func TestNormalize_DueDate(t *testing.T) {
	want := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	for _, raw := range []string{"2024-12-31", "31/12/2024", "31-12-2024", "31.12.2024", "2024/12/31", " 2024-12-31 "} {
		t.Run(raw, func(t *testing.T) {
			debt, rowErr := ingest.Normalize(rowWith(map[string]string{"debtDueDate": raw}))
			require.Nil(t, rowErr)
			assert.Equal(t, want, debt.DueDate)
		})
	}

	t.Run("single digit day and month", func(t *testing.T) {
		debt, rowErr := ingest.Normalize(rowWith(map[string]string{"debtDueDate": "5/3/2024"}))
		require.Nil(t, rowErr)
		assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), debt.DueDate)
	})

	for _, raw := range []string{"invalid_date", "", "2024-13-01", "32/01/2024"} {
		t.Run("invalid "+raw, func(t *testing.T) {
			debt, rowErr := ingest.Normalize(rowWith(map[string]string{"debtDueDate": raw}))
			assert.Nil(t, debt)
			require.NotNil(t, rowErr)
			assert.Equal(t, domain.KindParse, rowErr.Kind)
			assert.Equal(t, "invalid date: "+raw, rowErr.Message)
		})
	}
}

func TestNormalize_IsDeterministic(t *testing.T) {
	row := gateway.Row{Number: 3, Fields: validFields()}
	first, err1 := ingest.Normalize(row)
	second, err2 := ingest.Normalize(row)
	require.Nil(t, err1)
	require.Nil(t, err2)
	assert.Equal(t, first, second)
}
