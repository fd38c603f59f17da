// Package snapshot persists a Reasoner's memory to SQLite and restores it,
// so a process can be stopped and resumed without losing what it has
// learned. It uses modernc.org/sqlite (pure Go, no cgo) and an embedded
// migration, following the same go:embed-schema pattern the rest of the
// teacher codebase's data layer uses. The event bus is never persisted —
// Load only repopulates the concept store, overflow cache, task queues,
// premise queue, identity and counters of an already-constructed Reasoner.
package snapshot

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/normanking/alann/internal/budget"
	"github.com/normanking/alann/internal/concept"
	"github.com/normanking/alann/internal/cycle"
	"github.com/normanking/alann/internal/premise"
	"github.com/normanking/alann/internal/task"
	"github.com/normanking/alann/internal/term"
	"github.com/normanking/alann/internal/truth"
)

//go:embed migrations/001_initial_schema.sql
var initialSchema string

// TermCodec is the injected collaborator that turns a term.Term into a
// durable string and back. The control core has no term language of its
// own (internal/term deliberately only declares the interface it needs),
// so persistence cannot round-trip a term without this being supplied by
// whatever embeds the reasoner.
type TermCodec interface {
	Encode(t term.Term) string
	Decode(encoded string) (term.Term, error)
}

// Store wraps the SQLite connection a snapshot is read from or written to.
type Store struct {
	db *sql.DB
}

// Open creates (if necessary) and migrates the snapshot database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create snapshot directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.initPragmas(); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initPragmas() error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("execute %s: %w", p, err)
		}
	}
	return nil
}

func (s *Store) migrate() error {
	for _, stmt := range strings.Split(initialSchema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("run migration: %w\nstatement: %s", err, stmt)
		}
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "snapshot: wal checkpoint failed: %v\n", err)
	}
	return s.db.Close()
}

// sentenceFields is the flattened column set every persisted task or
// belief carries, independent of which table it lives in.
type sentenceFields struct {
	termEncoded    string
	punctuation    int
	hasTruth       bool
	frequency      float64
	confidence     float64
	creationTime   int64
	occurrenceTime int64
	eternal        bool
	priority       float64
	durability     float64
	quality        float64
	lastForgetTime int64
}

func fieldsFromTask(t *task.Task, codec TermCodec) sentenceFields {
	f := sentenceFields{
		termEncoded:    codec.Encode(t.Sentence.Term),
		punctuation:    int(t.Sentence.Punctuation),
		creationTime:   t.Sentence.Stamp.CreationTime,
		occurrenceTime: t.Sentence.Stamp.OccurrenceTime,
		eternal:        t.Sentence.Stamp.Eternal,
		priority:       t.BudgetValue.Priority,
		durability:     t.BudgetValue.Durability,
		quality:        t.BudgetValue.Quality,
		lastForgetTime: t.BudgetValue.LastForgetTime,
	}
	if t.Sentence.Truth != nil {
		f.hasTruth = true
		f.frequency = t.Sentence.Truth.Frequency
		f.confidence = t.Sentence.Truth.Confidence
	}
	return f
}

func taskFromFields(f sentenceFields, base []truth.BaseEntry, codec TermCodec) (*task.Task, error) {
	t, err := codec.Decode(f.termEncoded)
	if err != nil {
		return nil, fmt.Errorf("decode term %q: %w", f.termEncoded, err)
	}
	sentence := task.Sentence{
		Term:        t,
		Punctuation: task.Punctuation(f.punctuation),
		Stamp: truth.Stamp{
			CreationTime:   f.creationTime,
			OccurrenceTime: f.occurrenceTime,
			Eternal:        f.eternal,
			Base:           base,
		},
	}
	if f.hasTruth {
		sentence.Truth = &truth.Value{Frequency: f.frequency, Confidence: f.confidence}
	}
	b := budget.Value{
		Priority:       f.priority,
		Durability:     f.durability,
		Quality:        f.quality,
		LastForgetTime: f.lastForgetTime,
	}
	return task.NewTask(sentence, b), nil
}

// Save writes the full contents of r's concept store, overflow cache,
// input/cycling task queues, and premise queue into a fresh transaction,
// replacing whatever the database previously held.
func Save(ctx context.Context, s *Store, r *cycle.Reasoner, codec TermCodec) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{
		"premise_belief_stamp_base", "premise_task_stamp_base", "premise_records",
		"cycling_task_stamp_base", "cycling_tasks",
		"input_task_stamp_base", "input_tasks",
		"belief_stamp_base", "concept_beliefs", "concepts",
		"reasoner_meta",
	} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO reasoner_meta (id, reasoner_id, nar_id, stamp_serial, cycle_number, premise_seq, random_seed)
		VALUES (1, ?, ?, ?, ?, ?, ?)`,
		r.ReasonerID, r.NarID.String(), r.StampSerial, r.CycleNumber(), r.PremiseSeq(), r.RandomSeed,
	); err != nil {
		return fmt.Errorf("insert reasoner_meta: %w", err)
	}

	if err := saveConcepts(ctx, tx, "store", r.Concepts.Values(), codec); err != nil {
		return err
	}
	if r.Overflow != nil {
		overflowConcepts := make([]*concept.Concept, 0)
		for _, c := range r.Overflow.Snapshot() {
			overflowConcepts = append(overflowConcepts, c.Concept)
		}
		if err := saveConcepts(ctx, tx, "overflow", overflowConcepts, codec); err != nil {
			return err
		}
	}

	if err := saveTaskQueue(ctx, tx, "input_tasks", "input_task_stamp_base", r.InputTasks.Snapshot(), codec); err != nil {
		return err
	}
	if err := saveTaskQueue(ctx, tx, "cycling_tasks", "cycling_task_stamp_base", r.CyclingTasks.Values(), codec); err != nil {
		return err
	}
	if err := savePremiseQueue(ctx, tx, r.PremiseQueue.Values(), codec); err != nil {
		return err
	}

	return tx.Commit()
}

func saveConcepts(ctx context.Context, tx *sql.Tx, location string, concepts []*concept.Concept, codec TermCodec) error {
	for _, c := range concepts {
		eventOrdinal := -1
		for i, belief := range c.Beliefs {
			if belief == c.Event {
				eventOrdinal = i
				break
			}
		}
		termKey := c.Term.Name()
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO concepts (location, term_key, term_encoded, priority, durability, quality, last_forget_time, last_fire_time, event_ordinal)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			location, termKey, codec.Encode(c.Term),
			c.BudgetValue.Priority, c.BudgetValue.Durability, c.BudgetValue.Quality, c.BudgetValue.LastForgetTime,
			c.LastFireTime, eventOrdinal,
		); err != nil {
			return fmt.Errorf("insert concept %s: %w", termKey, err)
		}

		for ordinal, belief := range c.Beliefs {
			f := fieldsFromTask(belief, codec)
			res, err := tx.ExecContext(ctx, `
				INSERT INTO concept_beliefs (location, concept_term_key, ordinal, term_encoded, punctuation, has_truth, frequency, confidence, creation_time, occurrence_time, eternal, priority, durability, quality, last_forget_time)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				location, termKey, ordinal, f.termEncoded, f.punctuation, f.hasTruth, f.frequency, f.confidence,
				f.creationTime, f.occurrenceTime, f.eternal, f.priority, f.durability, f.quality, f.lastForgetTime,
			)
			if err != nil {
				return fmt.Errorf("insert belief for %s: %w", termKey, err)
			}
			beliefID, err := res.LastInsertId()
			if err != nil {
				return fmt.Errorf("belief id for %s: %w", termKey, err)
			}
			if err := saveStampBase(ctx, tx, "belief_stamp_base", "belief_id", beliefID, belief.Sentence.Stamp.Base); err != nil {
				return err
			}
		}
	}
	return nil
}

func saveStampBase(ctx context.Context, tx *sql.Tx, table, fkColumn string, ownerID int64, base []truth.BaseEntry) error {
	for ordinal, entry := range base {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`
			INSERT INTO %s (%s, ordinal, reasoner_id, serial) VALUES (?, ?, ?, ?)`, table, fkColumn),
			ownerID, ordinal, entry.ReasonerID, entry.Serial,
		); err != nil {
			return fmt.Errorf("insert %s: %w", table, err)
		}
	}
	return nil
}

func saveTaskQueue(ctx context.Context, tx *sql.Tx, taskTable, stampTable string, tasks []*task.Task, codec TermCodec) error {
	for ordinal, t := range tasks {
		f := fieldsFromTask(t, codec)
		res, err := tx.ExecContext(ctx, fmt.Sprintf(`
			INSERT INTO %s (ordinal, term_encoded, punctuation, has_truth, frequency, confidence, creation_time, occurrence_time, eternal, priority, durability, quality, last_forget_time)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, taskTable),
			ordinal, f.termEncoded, f.punctuation, f.hasTruth, f.frequency, f.confidence,
			f.creationTime, f.occurrenceTime, f.eternal, f.priority, f.durability, f.quality, f.lastForgetTime,
		)
		if err != nil {
			return fmt.Errorf("insert %s: %w", taskTable, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("%s id: %w", taskTable, err)
		}
		if err := saveStampBase(ctx, tx, stampTable, "task_id", id, t.Sentence.Stamp.Base); err != nil {
			return err
		}
	}
	return nil
}

func savePremiseQueue(ctx context.Context, tx *sql.Tx, records []*premise.Record, codec TermCodec) error {
	for _, r := range records {
		tf := fieldsFromTask(r.Task, codec)

		var belief sentenceFields
		hasBelief := r.Belief != nil
		if hasBelief {
			belief = fieldsFromTask(r.Belief, codec)
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO premise_records (
				record_key,
				task_term_encoded, task_punctuation, task_has_truth, task_frequency, task_confidence,
				task_creation_time, task_occurrence_time, task_eternal,
				task_priority, task_durability, task_quality, task_last_forget_time,
				task_concept_term_encoded, subterm_encoded,
				belief_concept_location, belief_concept_term_key,
				has_belief, belief_term_encoded, belief_punctuation, belief_has_truth, belief_frequency, belief_confidence,
				belief_creation_time, belief_occurrence_time, belief_eternal,
				belief_priority, belief_durability, belief_quality, belief_last_forget_time,
				temporal, priority, durability, quality
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			uint64(r.Name()),
			tf.termEncoded, tf.punctuation, tf.hasTruth, tf.frequency, tf.confidence,
			tf.creationTime, tf.occurrenceTime, tf.eternal,
			tf.priority, tf.durability, tf.quality, tf.lastForgetTime,
			codec.Encode(r.TaskConceptTerm), codec.Encode(r.Subterm),
			premiseConceptLocation(r.BeliefConcept), r.BeliefConcept.Term.Name(),
			hasBelief, nullableString(hasBelief, belief.termEncoded), nullableInt(hasBelief, belief.punctuation),
			nullableBool(hasBelief, belief.hasTruth), nullableFloat(hasBelief, belief.frequency), nullableFloat(hasBelief, belief.confidence),
			nullableInt64(hasBelief, belief.creationTime), nullableInt64(hasBelief, belief.occurrenceTime), nullableBool(hasBelief, belief.eternal),
			nullableFloat(hasBelief, belief.priority), nullableFloat(hasBelief, belief.durability), nullableFloat(hasBelief, belief.quality), nullableInt64(hasBelief, belief.lastForgetTime),
			r.Temporal, r.BudgetValue.Priority, r.BudgetValue.Durability, r.BudgetValue.Quality,
		)
		if err != nil {
			return fmt.Errorf("insert premise record: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("premise record id: %w", err)
		}
		if err := saveStampBase(ctx, tx, "premise_task_stamp_base", "record_id", id, r.Task.Sentence.Stamp.Base); err != nil {
			return err
		}
		if hasBelief {
			if err := saveStampBase(ctx, tx, "premise_belief_stamp_base", "record_id", id, r.Belief.Sentence.Stamp.Base); err != nil {
				return err
			}
		}
	}
	return nil
}

// premiseConceptLocation reports "store" since a premise is only ever
// enqueued against a concept that fireTask just resolved through the main
// store; the overflow cache is never a premise's belief concept.
func premiseConceptLocation(*concept.Concept) string { return "store" }

func nullableString(ok bool, v string) any {
	if !ok {
		return nil
	}
	return v
}
func nullableInt(ok bool, v int) any {
	if !ok {
		return nil
	}
	return v
}
func nullableInt64(ok bool, v int64) any {
	if !ok {
		return nil
	}
	return v
}
func nullableFloat(ok bool, v float64) any {
	if !ok {
		return nil
	}
	return v
}
func nullableBool(ok bool, v bool) any {
	if !ok {
		return nil
	}
	return v
}

// Load replaces the contents of r's concept store, overflow cache, task
// queues, and premise queue with whatever s currently holds. r must already
// be constructed (via cycle.NewReasoner) with empty containers; Load does
// not alter r's collaborators, clock, or event bus.
func Load(ctx context.Context, s *Store, r *cycle.Reasoner, codec TermCodec) error {
	var reasonerID uint64
	var narID string
	var stampSerial uint64
	var cycleNumber int64
	var premiseSeq uint64
	var randomSeed int64
	err := s.db.QueryRowContext(ctx, `
		SELECT reasoner_id, nar_id, stamp_serial, cycle_number, premise_seq, random_seed FROM reasoner_meta WHERE id = 1
	`).Scan(&reasonerID, &narID, &stampSerial, &cycleNumber, &premiseSeq, &randomSeed)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("query reasoner_meta: %w", err)
	}

	r.ReasonerID = reasonerID
	if parsed, err := uuid.Parse(narID); err == nil {
		r.NarID = parsed
	}
	r.StampSerial = stampSerial
	r.RandomSeed = randomSeed
	r.RestoreCounters(cycleNumber, premiseSeq)

	if err := loadConcepts(ctx, s, r, codec); err != nil {
		return err
	}
	if err := loadTaskQueue(ctx, s, "input_tasks", "input_task_stamp_base", r, codec, r.InputTasks.PushBack); err != nil {
		return err
	}
	if err := loadTaskQueue(ctx, s, "cycling_tasks", "cycling_task_stamp_base", r, codec, func(t *task.Task) {
		r.CyclingTasks.PutIn(t)
	}); err != nil {
		return err
	}
	if err := loadPremiseQueue(ctx, s, r, codec); err != nil {
		return err
	}
	return nil
}

func loadConcepts(ctx context.Context, s *Store, r *cycle.Reasoner, codec TermCodec) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT location, term_key, term_encoded, priority, durability, quality, last_forget_time, last_fire_time, event_ordinal
		FROM concepts`)
	if err != nil {
		return fmt.Errorf("query concepts: %w", err)
	}
	defer rows.Close()

	type conceptRow struct {
		location     string
		termKey      string
		termEncoded  string
		priority     float64
		durability   float64
		quality      float64
		forgetTime   int64
		fireTime     int64
		eventOrdinal int
	}
	var pending []conceptRow
	for rows.Next() {
		var cr conceptRow
		if err := rows.Scan(&cr.location, &cr.termKey, &cr.termEncoded, &cr.priority, &cr.durability, &cr.quality, &cr.forgetTime, &cr.fireTime, &cr.eventOrdinal); err != nil {
			return fmt.Errorf("scan concept: %w", err)
		}
		pending = append(pending, cr)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, cr := range pending {
		t, err := codec.Decode(cr.termEncoded)
		if err != nil {
			return fmt.Errorf("decode concept term %q: %w", cr.termEncoded, err)
		}
		beliefs, err := loadBeliefs(ctx, s, cr.location, cr.termKey, codec)
		if err != nil {
			return err
		}

		c := concept.NewConcept(budget.Value{
			Priority:       cr.priority,
			Durability:     cr.durability,
			Quality:        cr.quality,
			LastForgetTime: cr.forgetTime,
		}, t)
		c.Beliefs = beliefs
		c.LastFireTime = cr.fireTime
		if cr.eventOrdinal >= 0 && cr.eventOrdinal < len(beliefs) {
			c.Event = beliefs[cr.eventOrdinal]
		}

		switch cr.location {
		case "store":
			r.Concepts.PutBack(c, 0, cr.forgetTime, 0)
		case "overflow":
			r.RestoreOverflowConcept(c)
		}
	}
	return nil
}

func loadBeliefs(ctx context.Context, s *Store, location, termKey string, codec TermCodec) ([]*task.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, term_encoded, punctuation, has_truth, frequency, confidence, creation_time, occurrence_time, eternal, priority, durability, quality, last_forget_time
		FROM concept_beliefs WHERE location = ? AND concept_term_key = ? ORDER BY ordinal`, location, termKey)
	if err != nil {
		return nil, fmt.Errorf("query beliefs: %w", err)
	}
	defer rows.Close()

	var beliefs []*task.Task
	var ids []int64
	var fieldsByID []sentenceFields
	for rows.Next() {
		var id int64
		var f sentenceFields
		if err := rows.Scan(&id, &f.termEncoded, &f.punctuation, &f.hasTruth, &f.frequency, &f.confidence, &f.creationTime, &f.occurrenceTime, &f.eternal, &f.priority, &f.durability, &f.quality, &f.lastForgetTime); err != nil {
			return nil, fmt.Errorf("scan belief: %w", err)
		}
		ids = append(ids, id)
		fieldsByID = append(fieldsByID, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, id := range ids {
		base, err := loadStampBase(ctx, s, "belief_stamp_base", "belief_id", id)
		if err != nil {
			return nil, err
		}
		t, err := taskFromFields(fieldsByID[i], base, codec)
		if err != nil {
			return nil, err
		}
		beliefs = append(beliefs, t)
	}
	return beliefs, nil
}

func loadStampBase(ctx context.Context, s *Store, table, fkColumn string, ownerID int64) ([]truth.BaseEntry, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT reasoner_id, serial FROM %s WHERE %s = ? ORDER BY ordinal`, table, fkColumn), ownerID)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	var base []truth.BaseEntry
	for rows.Next() {
		var e truth.BaseEntry
		if err := rows.Scan(&e.ReasonerID, &e.Serial); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		base = append(base, e)
	}
	return base, rows.Err()
}

func loadTaskQueue(ctx context.Context, s *Store, taskTable, stampTable string, r *cycle.Reasoner, codec TermCodec, insert func(*task.Task)) error {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, term_encoded, punctuation, has_truth, frequency, confidence, creation_time, occurrence_time, eternal, priority, durability, quality, last_forget_time
		FROM %s ORDER BY ordinal`, taskTable))
	if err != nil {
		return fmt.Errorf("query %s: %w", taskTable, err)
	}
	defer rows.Close()

	type row struct {
		id int64
		f  sentenceFields
	}
	var pending []row
	for rows.Next() {
		var rr row
		if err := rows.Scan(&rr.id, &rr.f.termEncoded, &rr.f.punctuation, &rr.f.hasTruth, &rr.f.frequency, &rr.f.confidence, &rr.f.creationTime, &rr.f.occurrenceTime, &rr.f.eternal, &rr.f.priority, &rr.f.durability, &rr.f.quality, &rr.f.lastForgetTime); err != nil {
			return fmt.Errorf("scan %s: %w", taskTable, err)
		}
		pending = append(pending, rr)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, rr := range pending {
		base, err := loadStampBase(ctx, s, stampTable, "task_id", rr.id)
		if err != nil {
			return err
		}
		t, err := taskFromFields(rr.f, base, codec)
		if err != nil {
			return err
		}
		insert(t)
	}
	return nil
}

func loadPremiseQueue(ctx context.Context, s *Store, r *cycle.Reasoner, codec TermCodec) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, record_key,
			task_term_encoded, task_punctuation, task_has_truth, task_frequency, task_confidence,
			task_creation_time, task_occurrence_time, task_eternal,
			task_priority, task_durability, task_quality, task_last_forget_time,
			task_concept_term_encoded, subterm_encoded,
			belief_concept_location, belief_concept_term_key,
			has_belief, belief_term_encoded, belief_punctuation, belief_has_truth, belief_frequency, belief_confidence,
			belief_creation_time, belief_occurrence_time, belief_eternal,
			belief_priority, belief_durability, belief_quality, belief_last_forget_time,
			temporal, priority, durability, quality
		FROM premise_records`)
	if err != nil {
		return fmt.Errorf("query premise_records: %w", err)
	}
	defer rows.Close()

	type premiseRow struct {
		id                    int64
		key                   uint64
		task                  sentenceFields
		taskConceptTermEnc    string
		subtermEnc            string
		beliefConceptLocation string
		beliefConceptTermKey  string
		hasBelief             bool
		belief                sentenceFields
		temporal              bool
		priority              float64
		durability            float64
		quality               float64
	}
	var pending []premiseRow
	for rows.Next() {
		var pr premiseRow
		var beliefTermEnc, beliefConceptTermKey sql.NullString
		var beliefPunct, beliefHasTruth, beliefEternal sql.NullInt64
		var beliefFreq, beliefConf, beliefPriority, beliefDurability, beliefQuality sql.NullFloat64
		var beliefCreation, beliefOccurrence, beliefForget sql.NullInt64
		if err := rows.Scan(
			&pr.id, &pr.key,
			&pr.task.termEncoded, &pr.task.punctuation, &pr.task.hasTruth, &pr.task.frequency, &pr.task.confidence,
			&pr.task.creationTime, &pr.task.occurrenceTime, &pr.task.eternal,
			&pr.task.priority, &pr.task.durability, &pr.task.quality, &pr.task.lastForgetTime,
			&pr.taskConceptTermEnc, &pr.subtermEnc,
			&pr.beliefConceptLocation, &beliefConceptTermKey,
			&pr.hasBelief, &beliefTermEnc, &beliefPunct, &beliefHasTruth, &beliefFreq, &beliefConf,
			&beliefCreation, &beliefOccurrence, &beliefEternal,
			&beliefPriority, &beliefDurability, &beliefQuality, &beliefForget,
			&pr.temporal, &pr.priority, &pr.durability, &pr.quality,
		); err != nil {
			return fmt.Errorf("scan premise_record: %w", err)
		}
		pr.beliefConceptTermKey = beliefConceptTermKey.String
		if pr.hasBelief {
			pr.belief = sentenceFields{
				termEncoded:    beliefTermEnc.String,
				punctuation:    int(beliefPunct.Int64),
				hasTruth:       beliefHasTruth.Int64 != 0,
				frequency:      beliefFreq.Float64,
				confidence:     beliefConf.Float64,
				creationTime:   beliefCreation.Int64,
				occurrenceTime: beliefOccurrence.Int64,
				eternal:        beliefEternal.Int64 != 0,
				priority:       beliefPriority.Float64,
				durability:     beliefDurability.Float64,
				quality:        beliefQuality.Float64,
				lastForgetTime: beliefForget.Int64,
			}
		}
		pending = append(pending, pr)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, pr := range pending {
		taskBase, err := loadStampBase(ctx, s, "premise_task_stamp_base", "record_id", pr.id)
		if err != nil {
			return err
		}
		t, err := taskFromFields(pr.task, taskBase, codec)
		if err != nil {
			return err
		}
		taskConceptTerm, err := codec.Decode(pr.taskConceptTermEnc)
		if err != nil {
			return fmt.Errorf("decode task concept term: %w", err)
		}
		subterm, err := codec.Decode(pr.subtermEnc)
		if err != nil {
			return fmt.Errorf("decode subterm: %w", err)
		}

		beliefConceptTerm, err := codec.Decode(pr.beliefConceptTermKey)
		if err != nil {
			return fmt.Errorf("decode belief concept term: %w", err)
		}
		beliefConcept, found := r.Concepts.Get(beliefConceptTerm)
		if !found {
			// The concept this premise referenced is no longer resident
			// (evicted, or never reloaded); drop the record rather than
			// enqueue a premise with a nil concept, which Execute assumes
			// never happens.
			continue
		}

		var belief *task.Task
		if pr.hasBelief {
			beliefBase, err := loadStampBase(ctx, s, "premise_belief_stamp_base", "record_id", pr.id)
			if err != nil {
				return err
			}
			belief, err = taskFromFields(pr.belief, beliefBase, codec)
			if err != nil {
				return err
			}
		}

		record := premise.NewRecord(premise.Key(pr.key), t, taskConceptTerm, subterm, beliefConcept, belief, pr.temporal, pr.durability)
		record.BudgetValue = budget.Value{Priority: pr.priority, Durability: pr.durability, Quality: pr.quality}
		r.PremiseQueue.PutIn(record)
	}
	return nil
}
