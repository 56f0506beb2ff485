// Package checkpoint models the finalized checkpoint payload consumed by the indexer pipelines.
//
// A checkpoint is an ordered batch of transactions. Each transaction carries the objects it
// produced (output objects) together with effect entries describing what happened to each
// object it touched. Output objects expose two access paths to their contents: the raw BCS
// bytes and, when the producer materialized it, a structured named-field view.
package checkpoint

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// EffectKind is the change an effect entry records for one object.
type EffectKind string

const (
	EffectCreated              EffectKind = "created"
	EffectMutated              EffectKind = "mutated"
	EffectUnwrapped            EffectKind = "unwrapped"
	EffectDeleted              EffectKind = "deleted"
	EffectWrapped              EffectKind = "wrapped"
	EffectUnwrappedThenDeleted EffectKind = "unwrapped_then_deleted"
)

// ProducesOutput reports whether an object with this effect must be present among the
// transaction's output objects.
func (k EffectKind) ProducesOutput() bool {
	switch k {
	case EffectCreated, EffectMutated, EffectUnwrapped:
		return true
	default:
		return false
	}
}

// Effect is a single object reference from a transaction's effects.
type Effect struct {
	Kind     EffectKind `json:"kind"`
	ObjectID ObjectID   `json:"object_id"`
	Version  uint64     `json:"version"`
	Type     string     `json:"type,omitempty"`
}

// Object is an object state produced by a transaction.
type Object struct {
	ID      ObjectID
	Version uint64
	// RawType is the declared type as received; Type is nil when it is not a Move struct
	// (packages) or could not be parsed.
	RawType  string
	Type     *StructTag
	Contents []byte
	Fields   map[string]any
}

// RawContents is the binary access capability.
func (o *Object) RawContents() ([]byte, bool) {
	return o.Contents, len(o.Contents) > 0
}

// FieldView is the structured access capability. Numbers inside the view are json.Number.
func (o *Object) FieldView() (map[string]any, bool) {
	return o.Fields, o.Fields != nil
}

type objectJSON struct {
	ObjectID ObjectID       `json:"object_id"`
	Version  uint64         `json:"version"`
	Type     string         `json:"type"`
	BCS      []byte         `json:"bcs,omitempty"`
	Fields   map[string]any `json:"fields,omitempty"`
}

func (o *Object) UnmarshalJSON(data []byte) error {
	var raw objectJSON
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	*o = Object{
		ID:       raw.ObjectID,
		Version:  raw.Version,
		RawType:  raw.Type,
		Contents: raw.BCS,
		Fields:   raw.Fields,
	}
	if raw.Type != "" && raw.Type != "package" {
		if tag, err := ParseStructTag(raw.Type); err == nil {
			o.Type = &tag
		}
	}
	return nil
}

func (o Object) MarshalJSON() ([]byte, error) {
	return json.Marshal(objectJSON{
		ObjectID: o.ID,
		Version:  o.Version,
		Type:     o.RawType,
		BCS:      o.Contents,
		Fields:   o.Fields,
	})
}

// Transaction is one executed transaction and its outputs.
type Transaction struct {
	Digest        string   `json:"digest"`
	Sender        Address  `json:"sender"`
	Effects       []Effect `json:"effects"`
	OutputObjects []Object `json:"output_objects"`
}

// Resolve returns the output object an effect entry refers to.
func (tx *Transaction) Resolve(e Effect) (*Object, bool) {
	for i := range tx.OutputObjects {
		if tx.OutputObjects[i].ID == e.ObjectID {
			return &tx.OutputObjects[i], true
		}
	}
	return nil, false
}

// Checkpoint is an immutable, finalized batch of transactions.
type Checkpoint struct {
	SequenceNumber uint64        `json:"sequence_number"`
	TimestampMs    uint64        `json:"timestamp_ms"`
	Transactions   []Transaction `json:"transactions"`
}

// Decode reads a checkpoint in its JSON interchange form and validates it.
func Decode(r io.Reader) (*Checkpoint, error) {
	var cp Checkpoint
	if err := json.NewDecoder(r).Decode(&cp); err != nil {
		return nil, fmt.Errorf("decode checkpoint: %w", err)
	}
	if err := cp.Validate(); err != nil {
		return nil, err
	}
	return &cp, nil
}

// Validate checks that every effect producing an object resolves to an output object.
func (c *Checkpoint) Validate() error {
	for i := range c.Transactions {
		tx := &c.Transactions[i]
		for _, e := range tx.Effects {
			if !e.Kind.ProducesOutput() {
				continue
			}
			if _, ok := tx.Resolve(e); !ok {
				return fmt.Errorf("checkpoint %d tx %s: %s object %s missing from output objects",
					c.SequenceNumber, tx.Digest, e.Kind, e.ObjectID)
			}
		}
	}
	return nil
}

// ObjectCount returns the number of output objects across all transactions.
func (c *Checkpoint) ObjectCount() int {
	n := 0
	for i := range c.Transactions {
		n += len(c.Transactions[i].OutputObjects)
	}
	return n
}
