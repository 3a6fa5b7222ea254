package utils

import (
	"fmt"
	"strconv"
	"strings"
)

func GetStringPayload(payload map[string]any, key string) (string, error) {
	value, ok := payload[key]
	if !ok {
		return "", fmt.Errorf("payload is missing required key: '%s'", key)
	}
	strValue, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("payload key '%s' has an invalid type (expected string)", key)
	}
	return strValue, nil
}

func GetBoolPayload(payload map[string]any, key string) (bool, error) {
	v, ok := payload[key]
	if !ok {
		return false, fmt.Errorf("payload is missing required key: '%s'", key)
	}
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		if err != nil {
			return false, fmt.Errorf("payload key '%s' invalid bool: %v", key, err)
		}
		return b, nil
	default:
		return false, fmt.Errorf("payload key '%s' has unsupported type %T", key, v)
	}
}

func GetFloatPayload(payload map[string]any, key string) (float64, error) {
	v, ok := payload[key]
	if !ok {
		return 0, fmt.Errorf("payload is missing required key: '%s'", key)
	}
	switch t := v.(type) {
	case float64:
		return t, nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, fmt.Errorf("payload key '%s' invalid float: %v", key, err)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("payload key '%s' has unsupported type %T", key, v)
	}
}

