package scte35

import (
	"encoding/base64"
	"fmt"
	"strings"
)

const tableID = 0xFC

// Splice command types per SCTE-35.
const (
	CmdSpliceNull            uint8 = 0x00
	CmdSpliceSchedule        uint8 = 0x04
	CmdSpliceInsert          uint8 = 0x05
	CmdTimeSignal            uint8 = 0x06
	CmdBandwidthReservation  uint8 = 0x07
	CmdPrivate               uint8 = 0xFF
)

// SegmentationDescriptorTag is the splice_descriptor_tag for
// segmentation_descriptor (the only descriptor type this engine decodes).
const SegmentationDescriptorTag uint8 = 0x02

// SpliceInfoSection is the decoded form of a binary splice_info_section.
type SpliceInfoSection struct {
	ProtocolVersion   uint8
	EncryptedPacket   bool
	PTSAdjustment     uint64
	Tier              uint16
	SpliceCommandType uint8

	SpliceInsert *SpliceInsertCommand
	TimeSignal   *TimeSignalCommand

	SegmentationDescriptors []*SegmentationDescriptor

	CRCValid bool
}

// SpliceInsertCommand is the splice_insert() command.
type SpliceInsertCommand struct {
	SpliceEventID         uint32
	SpliceEventCancel     bool
	OutOfNetworkIndicator bool
	ProgramSpliceFlag     bool
	DurationFlag          bool
	SpliceImmediateFlag   bool
	PTSTime               *uint64
	AutoReturn            bool
	BreakDuration90k      *uint64
	UniqueProgramID       uint16
	AvailNum              uint8
	AvailsExpected        uint8
}

// TimeSignalCommand is the time_signal() command.
type TimeSignalCommand struct {
	PTSTime *uint64
}

// SegmentationDescriptor is a segmentation_descriptor() splice descriptor.
type SegmentationDescriptor struct {
	SegmentationEventID  uint32
	SegmentationEventCancel bool
	SegmentationDuration *uint64
	SegmentationTypeID   uint8
	UPIDType             uint8
	UPID                 []byte
	SegmentNum           uint8
	SegmentsExpected     uint8
}

// DecodeSpliceInfoSection decodes a base64(url) or base64-encoded
// splice_info_section, applying the 2^33 pts_adjustment wraparound to every
// extracted PTS value before returning. CRC failure is reported as a
// diagnostics warning, never a hard error, per spec §4.1/§6.2.
func DecodeSpliceInfoSection(b64 string) (*SpliceInfoSection, Diagnostics) {
	var d Diagnostics
	raw, err := decodeBase64Any(b64)
	if err != nil {
		d.addError("scte35: base64 decode: %v", err)
		return nil, d
	}
	if len(raw) < 14 {
		d.addError("scte35: splice_info_section too short (%d bytes)", len(raw))
		return nil, d
	}

	sis := &SpliceInfoSection{}
	if err := verifyCRC32(raw); err != nil {
		d.addWarning("%v", err)
		sis.CRCValid = false
	} else {
		sis.CRCValid = true
	}

	r := NewByteReader(raw)
	tid := r.ReadU8()
	if tid != tableID {
		d.addError("scte35: unexpected table_id 0x%02X", tid)
		return nil, d
	}
	r.Skip(1) // section_syntax_indicator
	r.Skip(1) // private_indicator
	r.Skip(2) // reserved / sap_type (treated as reserved here)
	sectionLength := int(r.ReadBits(12))
	sis.ProtocolVersion = r.ReadU8()
	sis.EncryptedPacket = r.ReadFlag()
	if sis.EncryptedPacket {
		d.addWarning("scte35: encrypted_packet=1, payload fields beyond this point are ciphertext")
	}
	r.Skip(6) // encryption_algorithm
	sis.PTSAdjustment = r.ReadPTS33()
	r.Skip(8) // cw_index
	sis.Tier = uint16(r.ReadBits(12))

	spliceCommandLength := int(r.ReadBits(12))
	sis.SpliceCommandType = r.ReadU8()

	var cmdBytes []byte
	if spliceCommandLength == 0xFFF {
		// Legacy encoders signal "unknown" here; recover the length from
		// section_length instead of trusting this field.
		headerBits := 8 + 1 + 1 + 2 + 12 + 8 + 1 + 6 + 33 + 8 + 12 + 12 + 8
		consumedBytes := headerBits / 8
		remaining := sectionLength + 3 - consumedBytes - 4 // +3 for the 3 bytes preceding section_length in the on-wire total; -4 for CRC
		if remaining < 0 || remaining > r.BitsLeft()/8 {
			remaining = r.BitsLeft()/8 - 2 // best-effort: leave room for descriptor_loop_length
		}
		cmdBytes = r.ReadBytes(remaining)
	} else {
		cmdBytes = r.ReadBytes(spliceCommandLength)
	}

	switch sis.SpliceCommandType {
	case CmdSpliceInsert:
		cmd, cerr := decodeSpliceInsert(cmdBytes, sis.PTSAdjustment)
		if cerr != nil {
			d.addError("scte35: splice_insert: %v", cerr)
		} else {
			sis.SpliceInsert = cmd
		}
	case CmdTimeSignal:
		cmd, cerr := decodeTimeSignal(cmdBytes, sis.PTSAdjustment)
		if cerr != nil {
			d.addError("scte35: time_signal: %v", cerr)
		} else {
			sis.TimeSignal = cmd
		}
	case CmdSpliceNull, CmdSpliceSchedule, CmdBandwidthReservation, CmdPrivate:
		// Parsed structurally (command bytes already consumed) but not
		// projected into a Signal; schedule pre-loading is out of scope
		// per spec §9 Open Question 3.
	default:
		d.addWarning("scte35: unknown splice_command_type 0x%02X", sis.SpliceCommandType)
	}

	descriptorLoopLength := int(r.ReadBits(16))
	if descriptorLoopLength > 0 && descriptorLoopLength <= r.BitsLeft()/8 {
		descBytes := r.ReadBytes(descriptorLoopLength)
		descs, derr := decodeSegmentationDescriptors(descBytes)
		if derr != nil {
			d.addError("scte35: descriptor loop: %v", derr)
		}
		sis.SegmentationDescriptors = descs
	}

	if r.Overflow() {
		d.addError("scte35: section truncated relative to declared lengths")
	}

	return sis, d
}

func decodeBase64Any(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		if b, err := enc.DecodeString(s); err == nil {
			return b, nil
		}
	}
	return nil, fmt.Errorf("not valid base64 or base64url")
}

func decodeSpliceInsert(data []byte, ptsAdjustment uint64) (*SpliceInsertCommand, error) {
	r := NewByteReader(data)
	cmd := &SpliceInsertCommand{}
	cmd.SpliceEventID = r.ReadU32BE()
	cmd.SpliceEventCancel = r.ReadFlag()
	r.Skip(7) // reserved

	if !cmd.SpliceEventCancel {
		cmd.OutOfNetworkIndicator = r.ReadFlag()
		cmd.ProgramSpliceFlag = r.ReadFlag()
		cmd.DurationFlag = r.ReadFlag()
		cmd.SpliceImmediateFlag = r.ReadFlag()
		r.Skip(4) // reserved

		if cmd.ProgramSpliceFlag && !cmd.SpliceImmediateFlag {
			timeSpecified := r.ReadFlag()
			if timeSpecified {
				r.Skip(6)
				pts := applyPTSAdjustment(r.ReadPTS33(), ptsAdjustment)
				cmd.PTSTime = &pts
			} else {
				r.Skip(7)
			}
		} else if !cmd.ProgramSpliceFlag {
			componentCount := int(r.ReadU8())
			for i := 0; i < componentCount; i++ {
				r.Skip(8) // component_tag
				if !cmd.SpliceImmediateFlag {
					timeSpecified := r.ReadFlag()
					if timeSpecified {
						r.Skip(6)
						r.Skip(33)
					} else {
						r.Skip(7)
					}
				}
			}
		}

		if cmd.DurationFlag {
			cmd.AutoReturn = r.ReadFlag()
			r.Skip(6)
			dur := r.ReadBits(33)
			cmd.BreakDuration90k = &dur
		}
	}
	cmd.UniqueProgramID = r.ReadU16BE()
	cmd.AvailNum = r.ReadU8()
	cmd.AvailsExpected = r.ReadU8()

	if r.Overflow() {
		return cmd, fmt.Errorf("truncated splice_insert command")
	}
	return cmd, nil
}

func decodeTimeSignal(data []byte, ptsAdjustment uint64) (*TimeSignalCommand, error) {
	r := NewByteReader(data)
	cmd := &TimeSignalCommand{}
	if len(data) == 0 {
		return cmd, nil
	}
	timeSpecified := r.ReadFlag()
	if timeSpecified {
		r.Skip(6)
		pts := applyPTSAdjustment(r.ReadPTS33(), ptsAdjustment)
		cmd.PTSTime = &pts
	} else {
		r.Skip(7)
	}
	if r.Overflow() {
		return cmd, fmt.Errorf("truncated time_signal command")
	}
	return cmd, nil
}

// applyPTSAdjustment adds pts_adjustment to a raw PTS and wraps modulo 2^33,
// per spec §4.1 "PTS adjustment" — mandatory for every extracted PTS value.
func applyPTSAdjustment(pts, adjustment uint64) uint64 {
	const mod = uint64(1) << 33
	return (pts + adjustment) % mod
}

func decodeSegmentationDescriptors(data []byte) ([]*SegmentationDescriptor, error) {
	const cueIdentifier = 0x43554549 // "CUEI"
	var out []*SegmentationDescriptor
	offset := 0
	for offset+2 <= len(data) {
		tag := data[offset]
		length := int(data[offset+1])
		end := offset + 2 + length
		if end > len(data) {
			return out, fmt.Errorf("descriptor length %d exceeds remaining data", length)
		}
		if tag == SegmentationDescriptorTag && length >= 4 {
			body := data[offset+2 : end]
			identifier := uint32(body[0])<<24 | uint32(body[1])<<16 | uint32(body[2])<<8 | uint32(body[3])
			if identifier == cueIdentifier {
				sd, err := decodeSegmentationDescriptor(body[4:])
				if err != nil {
					return out, err
				}
				out = append(out, sd)
			}
		}
		offset = end
	}
	return out, nil
}

func decodeSegmentationDescriptor(data []byte) (*SegmentationDescriptor, error) {
	r := NewByteReader(data)
	sd := &SegmentationDescriptor{}
	sd.SegmentationEventID = r.ReadU32BE()
	sd.SegmentationEventCancel = r.ReadFlag()
	r.Skip(7) // reserved

	if !sd.SegmentationEventCancel {
		programSegmentationFlag := r.ReadFlag()
		durationFlag := r.ReadFlag()
		deliveryNotRestricted := r.ReadFlag()
		if !deliveryNotRestricted {
			r.Skip(5) // web_delivery_allowed, no_regional_blackout, archive_allowed, device_restrictions(2)
		} else {
			r.Skip(5)
		}

		if !programSegmentationFlag {
			componentCount := int(r.ReadU8())
			for i := 0; i < componentCount; i++ {
				r.Skip(8)  // component_tag
				r.Skip(7)  // reserved
				r.Skip(33) // pts_offset
			}
		}

		if durationFlag {
			dur := r.ReadU40BE()
			sd.SegmentationDuration = &dur
		}

		sd.UPIDType = r.ReadU8()
		upidLen := int(r.ReadU8())
		sd.UPID = r.ReadBytes(upidLen)
		sd.SegmentationTypeID = r.ReadU8()
		sd.SegmentNum = r.ReadU8()
		sd.SegmentsExpected = r.ReadU8()

		// sub_segment_num / sub_segments_expected appear only for a handful
		// of segmentation types; tolerate their absence.
		if isSubSegmentedType(sd.SegmentationTypeID) && r.BitsLeft() >= 16 {
			r.Skip(16)
		}
	}

	if r.Overflow() {
		return sd, fmt.Errorf("truncated segmentation_descriptor")
	}
	return sd, nil
}

func isSubSegmentedType(typeID uint8) bool {
	switch typeID {
	case 0x34, 0x35, 0x36, 0x37, 0x38, 0x39, 0x3a, 0x3b:
		return true
	default:
		return false
	}
}
