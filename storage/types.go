package storage

import (
	"encoding"

	"github.com/vmihailenco/msgpack/v5"
)

type Storeable interface {
	Key() []byte
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
}

// DBReadMark is the stored per-counterpart read mark. Value is the RFC 3339
// timestamp string handed down by the tracker; UpdatedAt records the write
// time for inspection.
type DBReadMark struct {
	ID        string `msgpack:"id"`
	Value     string `msgpack:"value"`
	UpdatedAt int64  `msgpack:"updatedAt"`
}

func (m *DBReadMark) Key() []byte {
	return []byte(m.ID)
}

func (m *DBReadMark) MarshalBinary() (data []byte, err error) {
	type alias DBReadMark
	return msgpack.Marshal((*alias)(m))
}

func (m *DBReadMark) UnmarshalBinary(data []byte) error {
	type alias DBReadMark
	return msgpack.Unmarshal(data, (*alias)(m))
}
