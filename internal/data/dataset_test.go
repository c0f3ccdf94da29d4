package data

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `itching,skin_rash,cough,fever,skin_rash.1,prognosis
1,1,0,0,1,Fungal infection
0,1,0,0,1,Fungal infection
0,0,1,1,0,Common Cold
0,0,1,1,0,Common Cold
`

func TestLoadDatasetDropsDuplicateColumns(t *testing.T) {
	d, err := LoadDataset(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	assert.Equal(t, []string{"itching", "skin_rash", "cough", "fever"}, d.Columns)
	require.Len(t, d.Rows, 4)
	assert.Equal(t, []float64{1, 1, 0, 0}, d.Rows[0])
	assert.Equal(t, "Fungal infection", d.Labels[0])
}

func TestClassNamesAreSorted(t *testing.T) {
	d, err := LoadDataset(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	assert.Equal(t, []string{"Common Cold", "Fungal infection"}, d.ClassNames())
}

func TestEncodeLabels(t *testing.T) {
	d, err := LoadDataset(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	names, y := d.EncodeLabels()
	assert.Equal(t, []string{"Common Cold", "Fungal infection"}, names)
	assert.Equal(t, []int{1, 1, 0, 0}, y)
}

func TestProfilesUseFirstMatchingRow(t *testing.T) {
	d, err := LoadDataset(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	profiles := d.Profiles()
	// First Fungal infection row has itching=1, not the second row's subset.
	assert.Equal(t, []string{"itching", "skin_rash"}, profiles["Fungal infection"])
	assert.Equal(t, []string{"cough", "fever"}, profiles["Common Cold"])
}

func TestLoadDatasetErrors(t *testing.T) {
	cases := map[string]string{
		"empty input":   "",
		"header only":   "a,b,prognosis\n",
		"ragged row":    "a,b,prognosis\n1,0\n",
		"non-numeric":   "a,b,prognosis\n1,x,Cold\n",
		"single column": "prognosis\nCold\n",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadDataset(strings.NewReader(input))
			assert.Error(t, err)
		})
	}
}
