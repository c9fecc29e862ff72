package coach

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ahrav/go-coach/internal/domain"
)

func TestGate_Missing(t *testing.T) {
	g := NewGate()

	tests := []struct {
		name   string
		values map[domain.Field]string
		want   []domain.Field
	}{
		{name: "empty", values: nil, want: domain.RequiredFields()},
		{
			name: "only focus missing",
			values: map[domain.Field]string{
				domain.FieldGoal: "strength", domain.FieldEquipment: "barbell", domain.FieldDuration: "45",
			},
			want: []domain.Field{domain.FieldFocus},
		},
		{
			name: "sentinel counts as missing",
			values: map[domain.Field]string{
				domain.FieldGoal: "strength", domain.FieldEquipment: "null", domain.FieldDuration: "45", domain.FieldFocus: "legs",
			},
			want: []domain.Field{domain.FieldEquipment},
		},
		{
			name: "optional fields never reported",
			values: map[domain.Field]string{
				domain.FieldGoal: "strength", domain.FieldEquipment: "barbell", domain.FieldDuration: "45", domain.FieldFocus: "legs",
			},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs, err := domain.NewFieldSet(tt.values)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, g.Missing(fs))
			assert.Equal(t, len(tt.want) == 0, g.Complete(fs))
		})
	}
}

func TestGate_ZeroValueUsesRequiredFields(t *testing.T) {
	var g Gate
	assert.Equal(t, domain.RequiredFields(), g.Missing(domain.FieldSet{}))
}
