package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFoldCase(t *testing.T) {
	assert.Equal(t, "ACETYLSALICYLIC ACID", FoldCase("  acetylsalicylic \t acid "))
	assert.Equal(t, "", FoldCase("   "))
}

func TestSortWords(t *testing.T) {
	assert.Equal(t, "ACID ASCORBIC", SortWords("ASCORBIC  ACID"))
	assert.Equal(t, "", SortWords(""))
}

func TestStandardize(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{name: "ph digraph", input: "ACETAMINOPHEN", want: "ACETAMINOFEN"},
		{name: "already standard", input: "ACETAMINOFEN", want: "ACETAMINOFEN"},
		{name: "sulph and final e", input: "FERROUS SULPHATE", want: "FEROUS SULFAT"},
		{name: "german spelling", input: "EISENSULFAT", want: "EISENSULFAT"},
		{name: "double letters", input: "COFFEIN", want: "COFEIN"},
		{name: "oe digraph", input: "OESTRADIOL", want: "ESTRADIOL"},
		{name: "latin suffixes", input: "ACIDUM ASCORBICUM", want: "ACID ASCORBIC"},
		{name: "y to i", input: "HYDROXYZINE", want: "HIDROXIZIN"},
		{name: "punctuation", input: "AMOXICILLIN/CLAVULANIC-ACID", want: "AMOXICILIN CLAVULANIC ACID"},
		{name: "diacritics", input: "CAFÉINE", want: "CAFEIN"},
		{name: "short word keeps final e", input: "VITAMIN E", want: "VITAMIN E"},
		{name: "digits untouched", input: "VITAMIN B12 100", want: "VITAMIN B12 100"},
		{name: "lowercase input", input: "paracetamol", want: "PARACETAMOL"},
		{name: "empty", input: "", want: ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Standardize(tc.input))
		})
	}
}

func TestStandardizeIdempotent(t *testing.T) {
	inputs := []string{
		"ACETAMINOPHEN", "AAA", "PHPH", "THEOPHYLLINE", "COFFEE", "EEEE", "ÆTHER",
		"acidum acetylsalicylicum", "Y-Y Y", "  --  ", "SULPHAMETHOXAZOLE + TRIMETHOPRIM",
		"natriumchloride", "ÖSTRADIOL", "ß", "CKCK", "ICUMICUM",
	}
	for _, in := range inputs {
		once := Standardize(in)
		assert.Equal(t, once, Standardize(once), "input %q", in)
	}
}

func TestSortWordsIdempotent(t *testing.T) {
	for _, in := range []string{"B A C", "ACID ASCORBIC", "Z  Y X", ""} {
		once := SortWords(in)
		assert.Equal(t, once, SortWords(once))
	}
}
