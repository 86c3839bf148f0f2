package scte35

import (
	"encoding/base64"
	"testing"
)

func TestDecodeSpliceInfoSectionFromGotsFixture(t *testing.T) {
	raw := BuildSpliceInsertViaGots(1001, 900000, 540000, true, true)
	b64 := base64.StdEncoding.EncodeToString(raw)

	sis, d := DecodeSpliceInfoSection(b64)
	for _, e := range d.Errors {
		t.Fatalf("unexpected error: %v", e)
	}
	if sis.SpliceInsert == nil {
		t.Fatal("expected a decoded splice_insert command")
	}
	if sis.SpliceInsert.SpliceEventID != 1001 {
		t.Errorf("SpliceEventID = %d, want 1001", sis.SpliceInsert.SpliceEventID)
	}
	if sis.SpliceInsert.PTSTime == nil || *sis.SpliceInsert.PTSTime != 900000 {
		t.Errorf("PTSTime = %v, want 900000", sis.SpliceInsert.PTSTime)
	}
	if sis.SpliceInsert.BreakDuration90k == nil || *sis.SpliceInsert.BreakDuration90k != 540000 {
		t.Errorf("BreakDuration90k = %v, want 540000", sis.SpliceInsert.BreakDuration90k)
	}
	if !sis.SpliceInsert.OutOfNetworkIndicator {
		t.Error("expected out_of_network_indicator = true")
	}
}

func TestEncodeDecodeSpliceInsertRoundTrip(t *testing.T) {
	pts := uint64(1800000)
	dur := uint64(270000)
	sis := &SpliceInfoSection{
		ProtocolVersion: 0,
		PTSAdjustment:   0,
		Tier:            0xFFF,
		SpliceInsert: &SpliceInsertCommand{
			SpliceEventID:         42,
			OutOfNetworkIndicator: true,
			ProgramSpliceFlag:     true,
			DurationFlag:          true,
			PTSTime:               &pts,
			AutoReturn:            true,
			BreakDuration90k:      &dur,
			UniqueProgramID:       7,
		},
	}
	encoded, err := sis.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	b64 := base64.StdEncoding.EncodeToString(encoded)
	decoded, d := DecodeSpliceInfoSection(b64)
	if !d.OK() {
		t.Fatalf("unexpected decode errors: %v", d.Errors)
	}
	if !decoded.CRCValid {
		t.Error("expected recomputed CRC to validate")
	}
	if decoded.SpliceInsert.SpliceEventID != 42 {
		t.Errorf("SpliceEventID = %d, want 42", decoded.SpliceInsert.SpliceEventID)
	}
	if decoded.SpliceInsert.PTSTime == nil || *decoded.SpliceInsert.PTSTime != pts {
		t.Errorf("PTSTime = %v, want %d", decoded.SpliceInsert.PTSTime, pts)
	}
	if decoded.SpliceInsert.BreakDuration90k == nil || *decoded.SpliceInsert.BreakDuration90k != dur {
		t.Errorf("BreakDuration90k = %v, want %d", decoded.SpliceInsert.BreakDuration90k, dur)
	}
	if decoded.Tier != 0xFFF {
		t.Errorf("Tier = 0x%X, want 0xFFF", decoded.Tier)
	}
}

func TestPTSAdjustmentWraparound(t *testing.T) {
	const mod = uint64(1) << 33
	got := applyPTSAdjustment(mod-10, 20)
	if got != 10 {
		t.Errorf("applyPTSAdjustment wraparound = %d, want 10", got)
	}
}

func TestDecodeSpliceInfoSectionBadCRCIsWarningNotError(t *testing.T) {
	raw := BuildSpliceInsertViaGots(5, 0, 0, false, true)
	raw[len(raw)-1] ^= 0xFF // corrupt CRC
	b64 := base64.StdEncoding.EncodeToString(raw)

	sis, d := DecodeSpliceInfoSection(b64)
	if sis == nil {
		t.Fatal("expected section to still decode despite CRC mismatch")
	}
	if len(d.Errors) != 0 {
		t.Fatalf("CRC mismatch must be a warning, got errors: %v", d.Errors)
	}
	if len(d.Warnings) == 0 {
		t.Fatal("expected a CRC mismatch warning")
	}
}

func TestToSignalFromSpliceInsert(t *testing.T) {
	raw := BuildSpliceInsertViaGots(77, 1800000, 540000, true, true)
	b64 := base64.StdEncoding.EncodeToString(raw)
	sis, d := DecodeSpliceInfoSection(b64)
	if !d.OK() {
		t.Fatalf("decode errors: %v", d.Errors)
	}
	sig, pd := ToSignal(sis, fixedNow())
	if !pd.OK() {
		t.Fatalf("project errors: %v", pd.Errors)
	}
	if sig.Type != TypeSpliceInsert {
		t.Errorf("Type = %v, want splice_insert", sig.Type)
	}
	if sig.SpliceEventID == nil || *sig.SpliceEventID != 77 {
		t.Errorf("SpliceEventID = %v, want 77", sig.SpliceEventID)
	}
	if sig.DurationSec == nil || *sig.DurationSec != 6.0 {
		t.Errorf("DurationSec = %v, want 6.0 (540000/90000)", sig.DurationSec)
	}
}
