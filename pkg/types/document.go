// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the inspire-harvester
// pipeline: the bibliographic document shape, the page response envelope
// returned by the literature API, and per-stage configuration structs.
package types

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Document is a single bibliographic record as returned by the literature
// API, after key sanitization. The schema is externally defined and open,
// so the record is kept as a generic map. The external record identifier
// lives under the "_id" key (the sanitizer renames the API's "id" field)
// and is the document store's primary key.
type Document map[string]any

// ID returns the external record identifier as a string. The API serves
// ids as JSON strings or numbers depending on the endpoint; both forms are
// accepted. Returns "" when the document carries no identifier.
func (d Document) ID() string {
	v, ok := d["_id"]
	if !ok {
		return ""
	}
	switch id := v.(type) {
	case string:
		return id
	case json.Number:
		return id.String()
	case float64:
		return strconv.FormatInt(int64(id), 10)
	case int:
		return strconv.Itoa(id)
	default:
		return ""
	}
}

// PageResponse is one page of query results. Produced by a single fetch,
// consumed once by the paginator, then discarded.
type PageResponse struct {
	// Total is the total hit count for the whole query, not this page.
	Total int

	// Hits are the documents on this page, in server order.
	Hits []Document

	// Next is the continuation URL for the following page, or "" when
	// this is the last page.
	Next string
}

// pageEnvelope mirrors the API's JSON layout: hits.total, hits.hits and
// links.next.
type pageEnvelope struct {
	Hits struct {
		Total int               `json:"total"`
		Hits  []json.RawMessage `json:"hits"`
	} `json:"hits"`
	Links struct {
		Next string `json:"next"`
	} `json:"links"`
}

// UnmarshalJSON decodes the API envelope into the flat PageResponse shape.
// Hit objects are decoded with json.Number so large record ids survive
// untouched.
func (p *PageResponse) UnmarshalJSON(data []byte) error {
	var env pageEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	p.Total = env.Hits.Total
	p.Next = env.Links.Next
	p.Hits = make([]Document, 0, len(env.Hits.Hits))
	for _, raw := range env.Hits.Hits {
		doc, err := decodeDocument(raw)
		if err != nil {
			return err
		}
		p.Hits = append(p.Hits, doc)
	}
	return nil
}

// decodeDocument parses one hit object preserving numeric precision.
func decodeDocument(raw json.RawMessage) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}
