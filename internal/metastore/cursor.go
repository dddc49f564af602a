package metastore

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// The pagination cursor is the table's own LastEvaluatedKey, flattened
// to its string members and base64-encoded. Clients pass it back
// opaquely; nothing outside this package decodes it.

func encodeCursor(key map[string]types.AttributeValue) (string, error) {
	if len(key) == 0 {
		return "", nil
	}
	flat := make(map[string]string, len(key))
	for name, av := range key {
		s, ok := av.(*types.AttributeValueMemberS)
		if !ok {
			return "", fmt.Errorf("unexpected attribute type in continuation key %q", name)
		}
		flat[name] = s.Value
	}
	raw, err := json.Marshal(flat)
	if err != nil {
		return "", fmt.Errorf("marshal continuation key: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func decodeCursor(cursor string) (map[string]types.AttributeValue, error) {
	if cursor == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, fmt.Errorf("decode page token: %w", err)
	}
	var flat map[string]string
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, fmt.Errorf("parse page token: %w", err)
	}
	key := make(map[string]types.AttributeValue, len(flat))
	for name, value := range flat {
		key[name] = &types.AttributeValueMemberS{Value: value}
	}
	return key, nil
}
