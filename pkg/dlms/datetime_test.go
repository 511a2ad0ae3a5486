package dlms

import (
	"testing"
	"time"
)

func TestDecodeDateTimeWorkedExample(t *testing.T) {
	got, err := DecodeDateTime("07E7070A01111E0000FF8880")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2023, 7, 10, 19, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("DecodeDateTime = %v, want %v", got, want)
	}
}

func TestDecodeDateTimeRoundTrip(t *testing.T) {
	original := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)
	hexStr := EncodeDateTime(original, -60, false)
	got, err := DecodeDateTime(hexStr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(original) {
		t.Errorf("round trip mismatch: got %v want %v", got, original)
	}
}

func TestDecodeDateTimeTooShort(t *testing.T) {
	if _, err := DecodeDateTime("07E7"); err == nil {
		t.Errorf("expected malformed-timestamp error for short input")
	}
}

func TestDecodeDateTimeYearOutOfRange(t *testing.T) {
	// Year field 0x0929 = 2345, outside [1970, 2100].
	if _, err := DecodeDateTime("0929070A01111E0000FF8880"); err == nil {
		t.Errorf("expected malformed-timestamp error for out-of-range year")
	}
}
