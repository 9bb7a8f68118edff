/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package wire

import "encoding/binary"

// ParsePTPHeader decodes the 34-byte common PTP header from buf, which
// must start at the PTP payload (i.e. after any Ethernet/VLAN prefix).
func ParsePTPHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, ErrShortFrame
	}
	var h Header
	h.MessageType = MessageType(buf[0] & 0x0F)
	h.TransportSpecific = buf[0] >> 4
	h.Version = buf[1]
	h.MessageLength = binary.BigEndian.Uint16(buf[2:4])
	h.DomainNumber = buf[4]
	h.FlagField = binary.BigEndian.Uint16(buf[6:8])
	h.CorrectionField = int64(binary.BigEndian.Uint64(buf[8:16]))
	copy(h.SourcePortIdentity.ClockIdentity[:], buf[20:28])
	h.SourcePortIdentity.PortNumber = binary.BigEndian.Uint16(buf[28:30])
	h.SequenceID = binary.BigEndian.Uint16(buf[30:32])
	h.ControlField = buf[32]
	h.LogMessageInterval = int8(buf[33])
	return h, nil
}

func parseWireTimestamp(buf []byte) Timestamp {
	var ts Timestamp
	copy(ts.Seconds[:], buf[0:6])
	ts.Nanoseconds = binary.BigEndian.Uint32(buf[6:10])
	return ts
}

// ParseSync decodes a Sync message (header + 10-byte origin timestamp).
func ParseSync(buf []byte) (Header, Timestamp, error) {
	h, err := ParsePTPHeader(buf)
	if err != nil {
		return Header{}, Timestamp{}, err
	}
	if len(buf) < HeaderSize+SyncBodySize {
		return Header{}, Timestamp{}, ErrShortFrame
	}
	if h.MessageType != MessageSync {
		return Header{}, Timestamp{}, ErrUnknownMessageType
	}
	ts := parseWireTimestamp(buf[HeaderSize : HeaderSize+SyncBodySize])
	return h, ts, nil
}

// ParseDelayResp decodes a Delay_Resp message (header + 10-byte receive
// timestamp + 10-byte requesting port identity).
func ParseDelayResp(buf []byte) (Header, Timestamp, PortIdentity, error) {
	h, err := ParsePTPHeader(buf)
	if err != nil {
		return Header{}, Timestamp{}, PortIdentity{}, err
	}
	if len(buf) < HeaderSize+DelayRespBodySize {
		return Header{}, Timestamp{}, PortIdentity{}, ErrShortFrame
	}
	if h.MessageType != MessageDelayResp {
		return Header{}, Timestamp{}, PortIdentity{}, ErrUnknownMessageType
	}
	body := buf[HeaderSize:]
	ts := parseWireTimestamp(body[0:10])
	var reqID PortIdentity
	copy(reqID.ClockIdentity[:], body[10:18])
	reqID.PortNumber = binary.BigEndian.Uint16(body[18:20])
	return h, ts, reqID, nil
}

// DelayReqParams are the fields BuildDelayReq needs from the caller;
// everything else in the frame is fixed by the protocol/deployment.
type DelayReqParams struct {
	TxVLAN             uint16
	TxVLIdx            uint16
	SourcePortIdentity PortIdentity
	SequenceID         uint16
	PadLength          int // total PTP payload length; 0 means DelayReqPaddedLength
}

// BuildDelayReq emits a full Ethernet+VLAN+PTP Delay_Req frame. The
// default padded length (106 bytes) mirrors the observed peer; callers
// targeting a standards-compliant master set PadLength to
// DelayReqStandardLength (44) instead.
func BuildDelayReq(p DelayReqParams) []byte {
	padLen := p.PadLength
	if padLen == 0 {
		padLen = DelayReqPaddedLength
	}
	total := ethHeaderSize + vlanHeaderSize + padLen
	buf := make([]byte, total)

	buf[0] = DestMACBase[0]
	buf[1] = DestMACBase[1]
	buf[2] = DestMACBase[2]
	buf[3] = DestMACBase[3]
	buf[4] = byte(p.TxVLIdx >> 8)
	buf[5] = byte(p.TxVLIdx)

	copy(buf[6:12], SourceMAC[:])
	binary.BigEndian.PutUint16(buf[12:14], VLANEtherType)

	binary.BigEndian.PutUint16(buf[14:16], p.TxVLAN&0x0FFF)
	binary.BigEndian.PutUint16(buf[16:18], PTPEtherType)

	ptpBuf := buf[18:]
	ptpBuf[0] = byte(MessageDelayReq) // transportSpecific nibble left 0
	ptpBuf[1] = 2                    // version
	binary.BigEndian.PutUint16(ptpBuf[2:4], uint16(padLen))
	ptpBuf[4] = PTPDomain
	binary.BigEndian.PutUint16(ptpBuf[6:8], DelayReqFlags)
	// correctionField (8..15) left zero
	copy(ptpBuf[20:28], p.SourcePortIdentity.ClockIdentity[:])
	binary.BigEndian.PutUint16(ptpBuf[28:30], p.SourcePortIdentity.PortNumber)
	binary.BigEndian.PutUint16(ptpBuf[30:32], p.SequenceID)
	ptpBuf[32] = 1 // control: Delay_Req
	ptpBuf[33] = byte(DelayReqLogMessageInterval)
	// origin timestamp (34..43) left zero; remaining padding already zero

	return buf
}
