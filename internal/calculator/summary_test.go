package calculator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/groupsplit/internal/models"
)

func TestSummarize(t *testing.T) {
	dinner, err := Allocate(usd("90"), []string{"Alice", "Bob", "Charlie"}, Equal{}, "Alice")
	require.NoError(t, err)
	taxi, err := Allocate(usd("20"), []string{"Alice", "Bob"}, Equal{}, "Bob")
	require.NoError(t, err)

	expenses := []models.Expense{
		{
			Name:     "Dinner",
			Amount:   d("90"),
			Currency: "USD",
			PaidBy:   "Alice",
			Category: models.CategoryFood,
			Date:     time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC),
			Splits:   dinner.Lines,
		},
		{
			Name:     "Taxi",
			Amount:   d("20"),
			Currency: "USD",
			PaidBy:   "Bob",
			Category: models.CategoryTransportation,
			Date:     time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC),
			Splits:   taxi.Lines,
		},
		{
			Name:     "Souvenir",
			Amount:   d("5000"),
			Currency: "JPY",
			PaidBy:   "Charlie",
			Category: models.CategoryShopping,
		},
		{
			Name:     "Snacks",
			Amount:   d("10"),
			Currency: "USD",
			PaidBy:   "Charlie",
			Category: "",
			Date:     time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC),
			Splits:   []models.SplitLine{{ParticipantID: "Charlie", Amount: d("10"), IsSettled: true}},
		},
	}

	s := Summarize(expenses, "USD")

	assert.Equal(t, "120.00", s.Total.StringFixed(2))

	require.Len(t, s.Members, 3)
	assert.Equal(t, "Alice", s.Members[0].MemberID)
	assert.Equal(t, "90.00", s.Members[0].Paid.StringFixed(2))
	assert.Equal(t, "40.00", s.Members[0].Share.StringFixed(2))
	assert.Equal(t, "50.00", s.Members[0].Net().StringFixed(2))

	assert.Equal(t, "Bob", s.Members[1].MemberID)
	assert.Equal(t, "-20.00", s.Members[1].Net().StringFixed(2))

	assert.Equal(t, "Charlie", s.Members[2].MemberID)
	assert.Equal(t, "-30.00", s.Members[2].Net().StringFixed(2))

	require.Len(t, s.Categories, 3)
	assert.Equal(t, models.CategoryFood, s.Categories[0].Category)
	assert.Equal(t, models.CategoryTransportation, s.Categories[1].Category)
	assert.Equal(t, models.CategoryOther, s.Categories[2].Category)

	require.Len(t, s.Months, 2)
	assert.Equal(t, "2024-02", s.Months[0].Month)
	assert.Equal(t, "2024-03", s.Months[1].Month)
	assert.Equal(t, "100.00", s.Months[1].Amount.StringFixed(2))
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil, "EUR")
	assert.True(t, s.Total.IsZero())
	assert.Empty(t, s.Members)
	assert.Empty(t, s.Categories)
	assert.Empty(t, s.Months)
}
