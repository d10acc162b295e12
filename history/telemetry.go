package history

// RecordError indexes an application-level error event by its tick.
func (s *Store) RecordError(e ErrorEvent) {
	txn := s.sideDB.Txn(true)
	defer txn.Abort()
	_ = txn.Insert(errorTableName, &e)
	txn.Commit()
}

// GetErrors returns every recorded error with start <= tick <= end,
// ordered by tick.
func (s *Store) GetErrors(start, end int) []ErrorEvent {
	txn := s.sideDB.Txn(false)
	defer txn.Abort()

	it, err := txn.LowerBound(errorTableName, "tick", start)
	if err != nil {
		return nil
	}
	var out []ErrorEvent
	for raw := it.Next(); raw != nil; raw = it.Next() {
		e := raw.(*ErrorEvent)
		if e.Tick > end {
			break
		}
		out = append(out, *e)
	}
	return out
}

// GetErrorsForEntity returns every recorded error attributed to
// entityID within [start, end].
func (s *Store) GetErrorsForEntity(entityID, start, end int) []ErrorEvent {
	all := s.GetErrors(start, end)
	out := make([]ErrorEvent, 0, len(all))
	for _, e := range all {
		if e.EntityID != nil && *e.EntityID == entityID {
			out = append(out, e)
		}
	}
	return out
}

// RecordSpan indexes a tracing span by its tick, read out of
// Attributes["agentecs.tick"] if Tick was not set explicitly.
func (s *Store) RecordSpan(sp SpanEvent) {
	if sp.Tick == 0 {
		if t, ok := sp.Attributes["agentecs.tick"]; ok {
			switch v := t.(type) {
			case int:
				sp.Tick = v
			case float64:
				sp.Tick = int(v)
			}
		}
	}
	txn := s.sideDB.Txn(true)
	defer txn.Abort()
	_ = txn.Insert(spanTableName, &sp)
	txn.Commit()
}

// GetSpans returns every recorded span with start <= tick <= end,
// ordered by tick.
func (s *Store) GetSpans(start, end int) []SpanEvent {
	txn := s.sideDB.Txn(false)
	defer txn.Abort()

	it, err := txn.LowerBound(spanTableName, "tick", start)
	if err != nil {
		return nil
	}
	var out []SpanEvent
	for raw := it.Next(); raw != nil; raw = it.Next() {
		sp := raw.(*SpanEvent)
		if sp.Tick > end {
			break
		}
		out = append(out, *sp)
	}
	return out
}

// GetSpansForTrace returns every recorded span sharing traceID,
// ordered by span ID.
func (s *Store) GetSpansForTrace(traceID string) []SpanEvent {
	txn := s.sideDB.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(spanTableName, "trace", traceID)
	if err != nil {
		return nil
	}
	var out []SpanEvent
	for raw := it.Next(); raw != nil; raw = it.Next() {
		out = append(out, *raw.(*SpanEvent))
	}
	return out
}

func (s *Store) evictSideRecordsLocked(tick int) {
	txn := s.sideDB.Txn(true)
	defer txn.Abort()
	_, _ = txn.DeleteAll(errorTableName, "tick", tick)
	_, _ = txn.DeleteAll(spanTableName, "tick", tick)
	txn.Commit()
}
