package mstp

import (
	"github.com/sigurn/crc16"
	"github.com/sigurn/crc8"
)

const (
	headerCRCResidue byte   = 0x55
	dataCRCResidue   uint16 = 0xF0B8
)

// The MS/TP header CRC is the reflected CRC-8 of x^8 + x^7 + 1 with
// initial value 0xFF and no final xor.
var headerCRCTable = crc8.MakeTable(crc8.Params{
	Poly:   0x81,
	Init:   0xFF,
	RefIn:  true,
	RefOut: true,
	XorOut: 0x00,
	Name:   "CRC-8/MSTP",
})

// The MS/TP data CRC is CRC-16/MCRF4XX: reflected CCITT polynomial,
// initial value 0xFFFF and no final xor.
var dataCRCTable = crc16.MakeTable(crc16.CRC16_MCRF4XX)

// headerCRC accumulates the header CRC-8 octet by octet.
type headerCRC uint8

func newHeaderCRC() headerCRC {
	return headerCRC(crc8.Init(headerCRCTable))
}

func (c headerCRC) update(b ...byte) headerCRC {
	return headerCRC(crc8.Update(uint8(c), b, headerCRCTable))
}

func (c headerCRC) sum() byte {
	return crc8.Complete(uint8(c), headerCRCTable)
}

// valid checks the residue after folding the header and its CRC octet.
func (c headerCRC) valid() bool {
	return c.sum() == headerCRCResidue
}

// HeaderCRC calculates the header CRC as transmitted: the ones complement
// of the CRC-8 over frame type, destination, source and length.
func HeaderCRC(header []byte) byte {
	return ^newHeaderCRC().update(header...).sum()
}

// dataCRC accumulates the data CRC-16 octet by octet.
type dataCRC uint16

func newDataCRC() dataCRC {
	return dataCRC(crc16.Init(dataCRCTable))
}

func (c dataCRC) update(b ...byte) dataCRC {
	return dataCRC(crc16.Update(uint16(c), b, dataCRCTable))
}

func (c dataCRC) sum() uint16 {
	return crc16.Complete(uint16(c), dataCRCTable)
}

// valid checks the residue after folding data and both CRC octets.
func (c dataCRC) valid() bool {
	return c.sum() == dataCRCResidue
}

// DataCRC calculates the data CRC as transmitted: the ones complement of
// CRC-16/MCRF4XX, sent least significant octet first.
func DataCRC(data []byte) uint16 {
	return ^newDataCRC().update(data...).sum()
}
