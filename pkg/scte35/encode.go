package scte35

// Encode serializes a SpliceInfoSection back to its binary form, recomputing
// section_length and the trailing CRC32. Round-tripping decode→encode
// preserves the section modulo CRC recomputation (spec §8): any other byte
// in the section should come back identical for a section this package
// itself produced, since decode does not retain reserved-bit values it
// re-derives as all-ones on encode.
func (sis *SpliceInfoSection) Encode() ([]byte, error) {
	cmdBytes, cmdType, err := sis.encodeCommand()
	if err != nil {
		return nil, err
	}
	descBytes := sis.encodeDescriptors()

	sectionLenBits := 8 /*protocol_version*/ + 1 /*encrypted*/ + 6 /*enc_algo*/ +
		33 /*pts_adjustment*/ + 8 /*cw_index*/ + 12 /*tier*/ +
		12 /*splice_command_length*/ + 8 /*splice_command_type*/ + len(cmdBytes)*8 +
		16 /*descriptor_loop_length*/ + len(descBytes)*8 + 32 /*CRC*/
	sectionLen := sectionLenBits / 8

	totalBytes := 3 + sectionLen // table_id + flags/sap/section_length(2 bytes) + section body
	w := NewByteWriter(totalBytes)

	w.WriteU8(tableID)
	w.WriteFlag(false) // section_syntax_indicator
	w.WriteFlag(false) // private_indicator
	w.WriteBits(2, 0)  // sap_type / reserved
	w.WriteBits(12, uint64(sectionLen))

	w.WriteU8(sis.ProtocolVersion)
	w.WriteFlag(sis.EncryptedPacket)
	w.WriteBits(6, 0x3F) // encryption_algorithm
	w.WriteBits(33, sis.PTSAdjustment)
	w.WriteU8(0) // cw_index
	w.WriteBits(12, uint64(sis.Tier))

	w.WriteBits(12, uint64(len(cmdBytes)))
	w.WriteU8(cmdType)
	w.WriteBytes(cmdBytes)

	w.WriteU16BE(uint16(len(descBytes)))
	w.WriteBytes(descBytes)

	buf := w.Bytes()
	crc := crc32MPEG2(buf[:len(buf)-4])
	cw := NewByteWriter(4)
	cw.WriteU32BE(crc)
	copy(buf[len(buf)-4:], cw.Bytes())

	return buf, nil
}

func (sis *SpliceInfoSection) encodeCommand() (data []byte, cmdType uint8, err error) {
	switch {
	case sis.SpliceInsert != nil:
		return encodeSpliceInsert(sis.SpliceInsert), CmdSpliceInsert, nil
	case sis.TimeSignal != nil:
		return encodeTimeSignal(sis.TimeSignal), CmdTimeSignal, nil
	default:
		return nil, CmdSpliceNull, nil
	}
}

func encodeSpliceInsert(cmd *SpliceInsertCommand) []byte {
	bits := 32 + 1 + 7
	if !cmd.SpliceEventCancel {
		bits += 1 + 1 + 1 + 1 + 4
		if cmd.ProgramSpliceFlag && !cmd.SpliceImmediateFlag {
			bits += 1
			if cmd.PTSTime != nil {
				bits += 6 + 33
			} else {
				bits += 7
			}
		} else if !cmd.ProgramSpliceFlag {
			bits += 8
		}
		if cmd.DurationFlag {
			bits += 1 + 6 + 33
		}
		bits += 16 + 8 + 8
	}
	w := NewByteWriter(bits / 8)

	w.WriteU32BE(cmd.SpliceEventID)
	w.WriteFlag(cmd.SpliceEventCancel)
	w.WriteBits(7, 0x7F)

	if !cmd.SpliceEventCancel {
		w.WriteFlag(cmd.OutOfNetworkIndicator)
		w.WriteFlag(cmd.ProgramSpliceFlag)
		w.WriteFlag(cmd.DurationFlag)
		w.WriteFlag(cmd.SpliceImmediateFlag)
		w.WriteBits(4, 0xF)

		if cmd.ProgramSpliceFlag && !cmd.SpliceImmediateFlag {
			timeSpecified := cmd.PTSTime != nil
			w.WriteFlag(timeSpecified)
			if timeSpecified {
				w.WriteBits(6, 0x3F)
				w.WriteBits(33, *cmd.PTSTime)
			} else {
				w.WriteBits(7, 0x7F)
			}
		} else if !cmd.ProgramSpliceFlag {
			w.WriteU8(0) // component_count = 0
		}

		if cmd.DurationFlag {
			w.WriteFlag(cmd.AutoReturn)
			w.WriteBits(6, 0x3F)
			dur := uint64(0)
			if cmd.BreakDuration90k != nil {
				dur = *cmd.BreakDuration90k
			}
			w.WriteBits(33, dur)
		}
		w.WriteU16BE(cmd.UniqueProgramID)
		w.WriteU8(cmd.AvailNum)
		w.WriteU8(cmd.AvailsExpected)
	}
	return w.Bytes()
}

func encodeTimeSignal(cmd *TimeSignalCommand) []byte {
	bits := 1
	if cmd.PTSTime != nil {
		bits += 6 + 33
	} else {
		bits += 7
	}
	w := NewByteWriter(bits / 8)
	timeSpecified := cmd.PTSTime != nil
	w.WriteFlag(timeSpecified)
	if timeSpecified {
		w.WriteBits(6, 0x3F)
		w.WriteBits(33, *cmd.PTSTime)
	} else {
		w.WriteBits(7, 0x7F)
	}
	return w.Bytes()
}

func (sis *SpliceInfoSection) encodeDescriptors() []byte {
	var out []byte
	for _, sd := range sis.SegmentationDescriptors {
		body := encodeSegmentationDescriptor(sd)
		header := []byte{SegmentationDescriptorTag, byte(len(body))}
		out = append(out, header...)
		out = append(out, body...)
	}
	return out
}

func encodeSegmentationDescriptor(sd *SegmentationDescriptor) []byte {
	bits := 32 /*identifier*/ + 32 /*event id*/ + 1 + 7
	if !sd.SegmentationEventCancel {
		bits += 1 + 1 + 1 + 5
		if sd.SegmentationDuration != nil {
			bits += 40
		}
		bits += 8 + 8 + len(sd.UPID)*8 + 8 + 8 + 8
	}
	w := NewByteWriter(bits / 8)
	w.WriteU32BE(0x43554549) // "CUEI"
	w.WriteU32BE(sd.SegmentationEventID)
	w.WriteFlag(sd.SegmentationEventCancel)
	w.WriteBits(7, 0x7F)

	if !sd.SegmentationEventCancel {
		w.WriteFlag(true) // program_segmentation_flag
		w.WriteFlag(sd.SegmentationDuration != nil)
		w.WriteFlag(true) // delivery_not_restricted_flag
		w.WriteBits(5, 0x1F)

		if sd.SegmentationDuration != nil {
			w.WriteU40BE(*sd.SegmentationDuration)
		}
		w.WriteU8(sd.UPIDType)
		w.WriteU8(uint8(len(sd.UPID)))
		w.WriteBytes(sd.UPID)
		w.WriteU8(sd.SegmentationTypeID)
		w.WriteU8(sd.SegmentNum)
		w.WriteU8(sd.SegmentsExpected)
	}
	return w.Bytes()
}
