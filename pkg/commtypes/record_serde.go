package commtypes

import (
	"encoding/json"
	"fmt"

	"mq-pipeline-bench/pkg/common_errors"
)

type RecordJSONSerdeG struct{}

func (s RecordJSONSerdeG) String() string {
	return "RecordJSONSerdeG"
}

var _ = fmt.Stringer(RecordJSONSerdeG{})

var _ = SerdeG[Record](RecordJSONSerdeG{})

func (s RecordJSONSerdeG) Encode(value Record) ([]byte, error) {
	return json.Marshal(value)
}

func (s RecordJSONSerdeG) Decode(value []byte) (Record, error) {
	v := Record{}
	if err := json.Unmarshal(value, &v); err != nil {
		return Record{}, err
	}
	return v, nil
}

type RecordMsgpSerdeG struct{}

func (s RecordMsgpSerdeG) String() string {
	return "RecordMsgpSerdeG"
}

var _ = fmt.Stringer(RecordMsgpSerdeG{})

var _ = SerdeG[Record](RecordMsgpSerdeG{})

func (s RecordMsgpSerdeG) Encode(value Record) ([]byte, error) {
	return value.MarshalMsg(nil)
}

func (s RecordMsgpSerdeG) Decode(value []byte) (Record, error) {
	v := Record{}
	if _, err := v.UnmarshalMsg(value); err != nil {
		return Record{}, err
	}
	return v, nil
}

func GetRecordSerdeG(serdeFormat SerdeFormat) (SerdeG[Record], error) {
	if serdeFormat == JSON {
		return RecordJSONSerdeG{}, nil
	} else if serdeFormat == MSGP {
		return RecordMsgpSerdeG{}, nil
	} else {
		return nil, common_errors.ErrUnrecognizedSerdeFormat
	}
}
