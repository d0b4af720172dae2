package transfercore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCSV(t *testing.T) {
	in := "Name, Amount ,ADDRESS\n" +
		"alice,1.5,5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY\n" +
		"\n" +
		"bob,2,5FHneW46xGXgs5mUiveU4sbTyGBzmstUspZC92UhjJM694ty\n"
	set, err := Load(strings.NewReader(in))
	require.NoError(t, err)
	require.Equal(t, 2, set.Len())

	assert.Equal(t, RecipientRecord{Address: "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY", Amount: "1.5", Line: 2}, set.At(0))
	assert.Equal(t, "5FHneW46xGXgs5mUiveU4sbTyGBzmstUspZC92UhjJM694ty", set.At(1).Address)
	assert.Equal(t, "2", set.At(1).Amount)
	assert.Equal(t, 4, set.At(1).Line)
}

func TestLoadSemicolonAndBOM(t *testing.T) {
	set, err := Load(strings.NewReader("\ufeffaddress;amount\nA;1\nB;2,5\n"))
	require.NoError(t, err)
	require.Equal(t, 2, set.Len())
	assert.Equal(t, "B", set.At(1).Address)
	assert.Equal(t, "2,5", set.At(1).Amount)
}

func TestLoadIsLenientPerRow(t *testing.T) {
	in := "address,amount\n" +
		"A,abc\n" +
		"B\n" +
		"C,-3\n" +
		"D,\n"
	set, err := Load(strings.NewReader(in))
	require.NoError(t, err)
	require.Equal(t, 4, set.Len())
	assert.Equal(t, "abc", set.At(0).Amount)
	assert.Equal(t, "", set.At(1).Amount)
	assert.Equal(t, "-3", set.At(2).Amount)

	total, bad := set.Total(DefaultDecimals)
	assert.Equal(t, "0", total.String())
	assert.Equal(t, 4, bad)
}

func TestLoadParseErrors(t *testing.T) {
	for name, in := range map[string]string{
		"empty":          "",
		"missing amount": "address,value\nA,1\n",
		"no header":      "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY,1\n",
	} {
		set, err := Load(strings.NewReader(in))
		assert.Nil(t, set, name)
		assert.True(t, IsKind(err, KindParse), "%s: %v", name, err)
	}
}

func TestLoadJSON(t *testing.T) {
	in := `[{"address":"A","amount":"1.5"},{"address":"B","amount":2,"memo":"x"}]`
	set, err := LoadJSON(strings.NewReader(in))
	require.NoError(t, err)
	require.Equal(t, 2, set.Len())
	assert.Equal(t, "1.5", set.At(0).Amount)
	assert.Equal(t, "2", set.At(1).Amount)
	assert.Equal(t, 2, set.At(1).Line)

	_, err = LoadJSON(strings.NewReader(`[{"address":"A"}]`))
	assert.True(t, IsKind(err, KindParse))
	_, err = LoadJSON(strings.NewReader(`{"address":"A"`))
	assert.True(t, IsKind(err, KindParse))
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "list.csv")
	jsonPath := filepath.Join(dir, "list.JSON")
	require.NoError(t, os.WriteFile(csvPath, []byte("address,amount\nA,1\n"), 0o600))
	require.NoError(t, os.WriteFile(jsonPath, []byte(`[{"address":"B","amount":"3"}]`), 0o600))

	set, err := LoadFile(csvPath)
	require.NoError(t, err)
	assert.Equal(t, "A", set.At(0).Address)

	set, err = LoadFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, "B", set.At(0).Address)

	_, err = LoadFile(filepath.Join(dir, "missing.csv"))
	assert.True(t, IsKind(err, KindParse))
}

func TestRecordsReturnsCopy(t *testing.T) {
	set := NewRecipientSet([]RecipientRecord{{Address: "A", Amount: "1"}})
	recs := set.Records()
	recs[0].Address = "changed"
	assert.Equal(t, "A", set.At(0).Address)

	var nilSet *RecipientSet
	assert.Equal(t, 0, nilSet.Len())
	assert.Nil(t, nilSet.Records())
}

func TestTotal(t *testing.T) {
	set := NewRecipientSet([]RecipientRecord{{Amount: "1.5"}, {Amount: "2"}, {Amount: "x"}})
	total, bad := set.Total(DefaultDecimals)
	assert.Equal(t, "3500000", total.String())
	assert.Equal(t, 1, bad)
}
