package eventstore

import "fmt"

func validateAppendArgs(tenantID, aggregateID, aggregateType string, expectedVersion int, newEvents []InputEvent) error {
	if tenantID == "" {
		return &ValidationError{
			EventStoreError: EventStoreError{Op: "AppendEvents", Err: fmt.Errorf("tenant_id is empty")},
			Field:           "tenant_id",
		}
	}
	if aggregateID == "" {
		return &ValidationError{
			EventStoreError: EventStoreError{Op: "AppendEvents", Err: fmt.Errorf("aggregate_id is empty")},
			Field:           "aggregate_id",
		}
	}
	if aggregateType == "" {
		return &ValidationError{
			EventStoreError: EventStoreError{Op: "AppendEvents", Err: fmt.Errorf("aggregate_type is empty")},
			Field:           "aggregate_type",
		}
	}
	if expectedVersion < 0 {
		return &ValidationError{
			EventStoreError: EventStoreError{Op: "AppendEvents", Err: fmt.Errorf("expected_version must be >= 0, got %d", expectedVersion)},
			Field:           "expected_version",
			Value:           fmt.Sprintf("%d", expectedVersion),
		}
	}
	if len(newEvents) == 0 {
		return &ValidationError{
			EventStoreError: EventStoreError{Op: "AppendEvents", Err: fmt.Errorf("new_events must not be empty")},
			Field:           "new_events",
			Value:           "empty",
		}
	}
	for i, e := range newEvents {
		if e.Type == "" {
			return &ValidationError{
				EventStoreError: EventStoreError{Op: "AppendEvents", Err: fmt.Errorf("empty type in event %d", i)},
				Field:           "new_events.type",
				Value:           fmt.Sprintf("index[%d]", i),
			}
		}
		if len(e.Data) == 0 {
			return &ValidationError{
				EventStoreError: EventStoreError{Op: "AppendEvents", Err: fmt.Errorf("empty data in event %d", i)},
				Field:           "new_events.data",
				Value:           fmt.Sprintf("index[%d]", i),
			}
		}
	}
	return nil
}

func validateLoadArgs(tenantID, aggregateID, aggregateType string) error {
	if tenantID == "" {
		return &ValidationError{
			EventStoreError: EventStoreError{Op: "LoadEvents", Err: fmt.Errorf("tenant_id is empty")},
			Field:           "tenant_id",
		}
	}
	if aggregateID == "" {
		return &ValidationError{
			EventStoreError: EventStoreError{Op: "LoadEvents", Err: fmt.Errorf("aggregate_id is empty")},
			Field:           "aggregate_id",
		}
	}
	if aggregateType == "" {
		return &ValidationError{
			EventStoreError: EventStoreError{Op: "LoadEvents", Err: fmt.Errorf("aggregate_type is empty")},
			Field:           "aggregate_type",
		}
	}
	return nil
}
