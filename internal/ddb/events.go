package ddb

import (
	"encoding/json"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cockroachdb/errors"

	"github.com/letmevibethatforyou/connectx"
	"github.com/letmevibethatforyou/connectx/hierarchicalmenu"
)

// DynamoDBEvent represents a DynamoDB stream event
type DynamoDBEvent struct {
	Records []DynamoDBEventRecord `json:"Records"`
}

// DynamoDBEventRecord represents a single DynamoDB stream record
type DynamoDBEventRecord struct {
	AWSRegion      string               `json:"awsRegion"`
	Change         DynamoDBStreamRecord `json:"dynamodb"`
	EventID        string               `json:"eventID"`
	EventName      string               `json:"eventName"`
	EventSource    string               `json:"eventSource"`
	EventVersion   string               `json:"eventVersion"`
	EventSourceArn string               `json:"eventSourceARN"`
}

// DynamoDBStreamRecord represents the DynamoDB stream data
type DynamoDBStreamRecord struct {
	ApproximateCreationDateTime int64                           `json:"ApproximateCreationDateTime,omitempty"`
	Keys                        map[string]types.AttributeValue `json:"Keys,omitempty"`
	NewImage                    map[string]types.AttributeValue `json:"NewImage,omitempty"`
	OldImage                    map[string]types.AttributeValue `json:"OldImage,omitempty"`
	SequenceNumber              string                          `json:"SequenceNumber"`
	SizeBytes                   int64                           `json:"SizeBytes"`
	StreamViewType              string                          `json:"StreamViewType"`
}

// UnmarshalJSON decodes the DynamoDB JSON images of a stream record into
// SDK attribute values.
func (r *DynamoDBStreamRecord) UnmarshalJSON(data []byte) error {
	var raw struct {
		ApproximateCreationDateTime int64           `json:"ApproximateCreationDateTime,omitempty"`
		Keys                        json.RawMessage `json:"Keys,omitempty"`
		NewImage                    json.RawMessage `json:"NewImage,omitempty"`
		OldImage                    json.RawMessage `json:"OldImage,omitempty"`
		SequenceNumber              string          `json:"SequenceNumber"`
		SizeBytes                   int64           `json:"SizeBytes"`
		StreamViewType              string          `json:"StreamViewType"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := DynamoDBStreamRecord{
		ApproximateCreationDateTime: raw.ApproximateCreationDateTime,
		SequenceNumber:              raw.SequenceNumber,
		SizeBytes:                   raw.SizeBytes,
		StreamViewType:              raw.StreamViewType,
	}
	images := []struct {
		name string
		data json.RawMessage
		dst  *map[string]types.AttributeValue
	}{
		{"Keys", raw.Keys, &out.Keys},
		{"NewImage", raw.NewImage, &out.NewImage},
		{"OldImage", raw.OldImage, &out.OldImage},
	}
	for _, image := range images {
		if len(image.data) == 0 || string(image.data) == "null" {
			continue
		}
		m, err := UnmarshalAttributeValueMap(image.data)
		if err != nil {
			return errors.Wrapf(err, "failed to decode %s", image.name)
		}
		*image.dst = m
	}

	*r = out
	return nil
}

// UnmarshalAttributeValueMap decodes a DynamoDB JSON object such as
// {"pk": {"S": "a"}} into SDK attribute values.
func UnmarshalAttributeValueMap(data []byte) (map[string]types.AttributeValue, error) {
	var streamed map[string]events.DynamoDBAttributeValue
	if err := json.Unmarshal(data, &streamed); err != nil {
		return nil, err
	}
	return convertMap(streamed)
}

func convertMap(in map[string]events.DynamoDBAttributeValue) (map[string]types.AttributeValue, error) {
	out := make(map[string]types.AttributeValue, len(in))
	for k, v := range in {
		av, err := convert(v)
		if err != nil {
			return nil, errors.Wrapf(err, "attribute %s", k)
		}
		out[k] = av
	}
	return out, nil
}

// convert maps the Lambda event representation of an attribute onto the
// SDK one.
func convert(v events.DynamoDBAttributeValue) (types.AttributeValue, error) {
	switch v.DataType() {
	case events.DataTypeString:
		return &types.AttributeValueMemberS{Value: v.String()}, nil
	case events.DataTypeNumber:
		return &types.AttributeValueMemberN{Value: v.Number()}, nil
	case events.DataTypeBoolean:
		return &types.AttributeValueMemberBOOL{Value: v.Boolean()}, nil
	case events.DataTypeNull:
		return &types.AttributeValueMemberNULL{Value: true}, nil
	case events.DataTypeBinary:
		return &types.AttributeValueMemberB{Value: v.Binary()}, nil
	case events.DataTypeStringSet:
		return &types.AttributeValueMemberSS{Value: v.StringSet()}, nil
	case events.DataTypeNumberSet:
		return &types.AttributeValueMemberNS{Value: v.NumberSet()}, nil
	case events.DataTypeBinarySet:
		return &types.AttributeValueMemberBS{Value: v.BinarySet()}, nil
	case events.DataTypeList:
		items := v.List()
		list := make([]types.AttributeValue, 0, len(items))
		for _, item := range items {
			av, err := convert(item)
			if err != nil {
				return nil, err
			}
			list = append(list, av)
		}
		return &types.AttributeValueMemberL{Value: list}, nil
	case events.DataTypeMap:
		m, err := convertMap(v.Map())
		if err != nil {
			return nil, err
		}
		return &types.AttributeValueMemberM{Value: m}, nil
	default:
		return nil, errors.Newf("unsupported attribute type %d", v.DataType())
	}
}

// DynamoDBOperationType represents the type of DynamoDB operation
type DynamoDBOperationType string

const (
	DynamoDBOperationTypeInsert DynamoDBOperationType = "INSERT"
	DynamoDBOperationTypeModify DynamoDBOperationType = "MODIFY"
	DynamoDBOperationTypeRemove DynamoDBOperationType = "REMOVE"
)

// Record is a document stored for indexing: pk is the object id and sk the
// index it belongs to.
type Record struct {
	ID        string         `dynamodbav:"pk"`
	IndexName string         `dynamodbav:"sk"`
	Object    map[string]any `dynamodbav:"object"`
}

// UnmarshalRecord converts a DynamoDB image into a Record.
func UnmarshalRecord(image map[string]types.AttributeValue) (Record, error) {
	var record Record
	if err := attributevalue.UnmarshalMap(image, &record); err != nil {
		return Record{}, err
	}
	return record, nil
}

// MarshalRecord converts a Record into a DynamoDB item.
func MarshalRecord(record Record) (map[string]types.AttributeValue, error) {
	return attributevalue.MarshalMap(record)
}

// Hierarchy expands a category path stored in Source into the per-level
// attributes a hierarchical menu facets on, under Target.
type Hierarchy struct {
	Source    string
	Target    string
	Separator string
}

// ParseHierarchy parses "source:target". Without a target the levels are
// written to "hierarchicalCategories".
func ParseHierarchy(s string) (Hierarchy, error) {
	source, target, _ := strings.Cut(s, ":")
	if source == "" {
		return Hierarchy{}, errors.Newf("invalid hierarchy %q", s)
	}
	if target == "" {
		target = "hierarchicalCategories"
	}
	return Hierarchy{Source: source, Target: target, Separator: connectx.DefaultSeparator}, nil
}

// SearchObject returns the object to send to the search engine: a copy of
// Object with objectID set and every hierarchy expanded. A source holding a
// string is split on the separator; a list is taken as the path segments.
func (r Record) SearchObject(hierarchies ...Hierarchy) map[string]any {
	obj := make(map[string]any, len(r.Object)+len(hierarchies)+1)
	for k, v := range r.Object {
		obj[k] = v
	}
	obj["objectID"] = r.ID

	for _, h := range hierarchies {
		path := pathSegments(r.Object[h.Source], h.separator())
		if len(path) == 0 {
			continue
		}
		obj[h.Target] = hierarchicalmenu.Levels(path, h.separator())
	}
	return obj
}

func (h Hierarchy) separator() string {
	if h.Separator == "" {
		return connectx.DefaultSeparator
	}
	return h.Separator
}

func pathSegments(v any, separator string) []string {
	var segments []string
	switch val := v.(type) {
	case string:
		segments = strings.Split(val, separator)
	case []any:
		for _, item := range val {
			if s, ok := item.(string); ok {
				segments = append(segments, s)
			}
		}
	case []string:
		segments = val
	}

	path := segments[:0:0]
	for _, s := range segments {
		if s = strings.TrimSpace(s); s != "" {
			path = append(path, s)
		}
	}
	return path
}
