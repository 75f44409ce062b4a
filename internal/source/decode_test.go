package source

import (
	"errors"
	"strings"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/frame-geometry-index/pkg/errors"
)

func TestDecodeValidCatalogue(t *testing.T) {
	payload := catalogueJSON(
		[5]string{"1", "Time", "NXR", "XS", "2011"},
		[5]string{"2", "Time", "NXR", "XS", `"2010"`},
	)
	records, err := Decode(strings.NewReader(payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Year != "2011" || records[1].Year != "2010" {
		t.Errorf("years = %q, %q", records[0].Year, records[1].Year)
	}
	r := records[0]
	if r.ID != "1" || r.Brand != "Time" || r.ChainStayLength != 40.5 || r.ForkRate != 45 || r.Reach != 38 {
		t.Errorf("unexpected record: %+v", r)
	}
}

func TestDecodeRejectsMalformedPayloads(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", "<html>oops</html>"},
		{"object instead of array", `{"_id": "1"}`},
		{"null", "null"},
		{"truncated", `[{"_id": "1"`},
		{"trailing data", catalogueJSON([5]string{"1", "Time", "NXR", "XS", "2011"}) + " []"},
		{"boolean year", strings.Replace(catalogueJSON([5]string{"1", "Time", "NXR", "XS", "2011"}), `"year": 2011`, `"year": true`, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.payload))
			var decErr *DecodeError
			if !errors.As(err, &decErr) {
				t.Fatalf("expected DecodeError, got %v", err)
			}
			if !errors.Is(err, apperrors.ErrInvalidRecord) {
				t.Error("DecodeError should match ErrInvalidRecord")
			}
		})
	}
}

func TestDecodeReportsFieldErrors(t *testing.T) {
	payload := `[
		{"_id": "1", "brand": "Time", "model": "NXR", "size": "XS", "year": 2011},
		{"_id": "2", "brand": "", "model": "NXR", "size": "XS", "year": 2011}
	]`
	_, err := Decode(strings.NewReader(payload))
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	// 16 missing measurements on each record plus the empty brand.
	if len(vErr.Fields) != 33 {
		t.Errorf("expected 33 field errors, got %d", len(vErr.Fields))
	}
	if !strings.Contains(vErr.Error(), "and 23 more") {
		t.Errorf("error message should be truncated: %s", vErr.Error())
	}
	found := false
	for _, f := range vErr.Fields {
		if f.Index == 1 && f.Field == "brand" {
			found = true
		}
	}
	if !found {
		t.Error("missing brand error for record 1")
	}
}

func TestDecodeRejectsDuplicateIDsAndBadReach(t *testing.T) {
	payload := catalogueJSON(
		[5]string{"1", "Time", "NXR", "XS", "2011"},
		[5]string{"1", "Time", "NXR", "S", "2011"},
	)
	payload = strings.Replace(payload, `"reach": 38`, `"reach": 0`, 1)
	_, err := Decode(strings.NewReader(payload))
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	fields := map[string]bool{}
	for _, f := range vErr.Fields {
		fields[f.Field] = true
	}
	if !fields["_id"] || !fields["reach"] {
		t.Errorf("expected _id and reach errors, got %+v", vErr.Fields)
	}
}

func TestDecodeCanonicalizesNumericYears(t *testing.T) {
	payload := catalogueJSON(
		[5]string{"1", "Time", "NXR", "XS", "2011"},
		[5]string{"2", "Time", "NXR", "XS", "2011.0"},
	)
	records, err := Decode(strings.NewReader(payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if records[0].Year != "2011" || records[1].Year != records[0].Year {
		t.Errorf("years = %q, %q, want both 2011", records[0].Year, records[1].Year)
	}
}

func TestKeyAcceptsStringsAndNumbers(t *testing.T) {
	tests := []struct {
		in   string
		want Key
	}{
		{`"XS"`, Key{Value: "XS", Set: true}},
		{`2011`, Key{Value: "2011", Set: true}},
		{`2011.0`, Key{Value: "2011", Set: true}},
		{`2.011e3`, Key{Value: "2011", Set: true}},
		{`1e3`, Key{Value: "1000", Set: true}},
		{`2011.5`, Key{Value: "2011.5", Set: true}},
		{`-0`, Key{Value: "0", Set: true}},
		{`null`, Key{}},
	}
	for _, tt := range tests {
		var k Key
		if err := k.UnmarshalJSON([]byte(tt.in)); err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.in, err)
		}
		if k != tt.want {
			t.Errorf("%s: got %+v, want %+v", tt.in, k, tt.want)
		}
	}
	var k Key
	if err := k.UnmarshalJSON([]byte(`{"a":1}`)); err == nil {
		t.Error("expected error for object key")
	}
}
