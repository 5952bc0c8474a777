package shared

import (
	"encoding/json"
	"testing"

	"github.com/dmitrijs2005/healthsync/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestPatient_Validate(t *testing.T) {
	valid := Patient{FullName: "Asha Devi", Age: 42, Gender: GenderFemale, Village: "Rampur"}

	tests := []struct {
		name    string
		mutate  func(p *Patient)
		wantErr string
	}{
		{name: "valid", mutate: func(p *Patient) {}},
		{name: "valid with phone", mutate: func(p *Patient) { p.Phone = ptr("+911234") }},
		{name: "age zero ok", mutate: func(p *Patient) { p.Age = 0 }},
		{name: "age upper bound ok", mutate: func(p *Patient) { p.Age = MaxAge }},
		{name: "blank name", mutate: func(p *Patient) { p.FullName = "  " }, wantErr: "full_name is required"},
		{name: "negative age", mutate: func(p *Patient) { p.Age = -1 }, wantErr: "age must be between"},
		{name: "too old", mutate: func(p *Patient) { p.Age = MaxAge + 1 }, wantErr: "age must be between"},
		{name: "bad gender", mutate: func(p *Patient) { p.Gender = "male" }, wantErr: "gender"},
		{name: "no village", mutate: func(p *Patient) { p.Village = "" }, wantErr: "village is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, common.ErrValidation)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPatient_ValidateReportsAllProblems(t *testing.T) {
	err := Patient{Age: 200}.Validate()
	require.ErrorIs(t, err, common.ErrValidation)
	for _, s := range []string{"full_name", "age", "gender", "village"} {
		assert.Contains(t, err.Error(), s)
	}
}

func TestScreening_Validate(t *testing.T) {
	require.NoError(t, Screening{}.Validate())
	require.NoError(t, Screening{
		HeightCm:      ptr(165.5),
		SystolicBP:    ptr(120),
		SmokingStatus: ptr(SmokingFormer),
	}.Validate())

	err := Screening{HeartRate: ptr(-3)}.Validate()
	require.ErrorIs(t, err, common.ErrValidation)
	assert.Contains(t, err.Error(), "heart_rate")

	err = Screening{SmokingStatus: ptr(SmokingStatus("Sometimes"))}.Validate()
	require.ErrorIs(t, err, common.ErrValidation)
	assert.Contains(t, err.Error(), "smoking_status")
}

func TestScreening_JSONOmitsUnsetFields(t *testing.T) {
	b, err := json.Marshal(Screening{WeightKg: ptr(70.0)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"weight_kg":70}`, string(b))

	b, err = json.Marshal(Patient{FullName: "A", Age: 1, Gender: GenderOther, Village: "V"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"full_name":"A","age":1,"gender":"Other","village":"V"}`, string(b))
}
