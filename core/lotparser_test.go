package core

import (
	"reflect"
	"testing"
)

const (
	testMapping = `{"(n[13:15]+n[3:5])+.+(n[1:3]+n[26:28])+.+(n[20:27])":"n[13:18]"}`
	testLot     = "f4744c44df4541b3be48c5c270ced20b"
)

func TestNewLotParserGroups(t *testing.T) {
	parser, err := NewLotParser(testMapping)
	if err != nil {
		t.Fatalf("NewLotParser failed: %v", err)
	}

	if len(parser.keyGroups) != 3 {
		t.Fatalf("key groups = %d, want 3", len(parser.keyGroups))
	}
	for i, want := range []int{2, 2, 1} {
		if len(parser.keyGroups[i]) != want {
			t.Errorf("group %d has %d slices, want %d", i, len(parser.keyGroups[i]), want)
		}
	}
	if len(parser.value) != 1 {
		t.Errorf("value program has %d slices, want 1", len(parser.value))
	}
}

func TestLotParserDict(t *testing.T) {
	parser, err := NewLotParser(testMapping)
	if err != nil {
		t.Fatalf("NewLotParser failed: %v", err)
	}

	want := map[string]interface{}{
		"1b344c": map[string]interface{}{
			"474ced": map[string]interface{}{
				"c5c270ce": "1b3be4",
			},
		},
	}

	got := parser.Dict(testLot)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Dict = %v, want %v", got, want)
	}

	// Compiled parser is reusable; same lot must give the same dict
	if again := parser.Dict(testLot); !reflect.DeepEqual(again, got) {
		t.Errorf("Dict is not deterministic: %v vs %v", again, got)
	}
}

func TestLotParserMixedQuotes(t *testing.T) {
	parser, err := NewLotParser(`{"(n[0:3])":'n[4:7]'}`)
	if err != nil {
		t.Fatalf("mixed-quote mapping rejected: %v", err)
	}

	got := parser.Dict("abcdefgh")
	want := map[string]interface{}{"abcd": "efgh"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Dict = %v, want %v", got, want)
	}
}

func TestLotParserClamping(t *testing.T) {
	parser, err := NewLotParser(`{"(n[0:3])":"n[2:99]"}`)
	if err != nil {
		t.Fatal(err)
	}

	got := parser.Dict("abcdef")
	want := map[string]interface{}{"abcd": "cdef"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Dict = %v, want %v", got, want)
	}
}

func TestLotParserInvalidMapping(t *testing.T) {
	if _, err := NewLotParser("not a mapping"); err == nil {
		t.Fatal("expected error for invalid mapping")
	}
}
