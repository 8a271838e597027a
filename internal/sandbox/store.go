package sandbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/tournevent/casestack/pkg/casestack"
	"go.uber.org/zap"
)

type resourceDef struct {
	name         string
	idField      string
	savable      bool
	customizable bool
}

var resources = map[string]resourceDef{
	"carrier":  {name: casestack.ResourceCarrier, idField: "carrier_id", savable: true, customizable: true},
	"customer": {name: casestack.ResourceCustomer, idField: "customer_id", savable: true, customizable: true},
	"shipment": {name: casestack.ResourceShipment, idField: "shipment_id", savable: true},
	"address":  {name: casestack.ResourceAddress, idField: "address_id"},
}

func lookupResource(segment string) (resourceDef, bool) {
	r, ok := resources[strings.ToLower(segment)]
	return r, ok
}

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Store keeps sandbox records as JSON in a badger database.
type Store struct {
	db *badger.DB
}

// OpenStore opens the store at dir, or an in-memory store when dir is empty.
// Default fixtures are written for every key not already present, so records
// saved in an earlier run survive a restart.
func OpenStore(dir string, logger *zap.Logger) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true).WithMemTableSize(16 << 20)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = opts.WithLogger(badgerLogger{
		logger.Named("badger").WithOptions(zap.IncreaseLevel(zap.WarnLevel)).Sugar(),
	})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	s := &Store{db: db}
	if err := s.seedDefaults(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) seedDefaults() error {
	address := &casestack.Address{
		AddressID:  "foo",
		Company:    "Foo Distribution",
		Line1:      "100 Warehouse Row",
		City:       "Memphis",
		State:      "TN",
		PostalCode: "38118",
		Country:    "US",
	}
	seeds := []struct {
		id     string
		record casestack.Resource
	}{
		{"foo", casestack.Carrier{CarrierID: "foo", Name: "Foo Freight Lines", SCAC: "FOOF", Active: true}},
		{"foo", casestack.Customer{CustomerID: "foo", Name: "Foo Retail", AccountNumber: "C-1000", Active: true}},
		{"0", casestack.Shipment{ShipmentID: "0", CustomerID: "foo", CarrierID: "foo", Status: casestack.ReadyToTender.String(), Origin: address}},
		{"foo", *address},
	}
	for _, seed := range seeds {
		raw, err := json.Marshal(seed.record)
		if err != nil {
			return fmt.Errorf("encoding %s: %w", seed.record.ResourceName(), err)
		}
		if err := s.setIfAbsent(recordKey(seed.record.ResourceName(), seed.id), raw); err != nil {
			return err
		}
	}

	fields := map[string]casestack.CustomFields{
		"carrier": {
			Parent: "carrier",
			Fields: []casestack.CustomField{
				{Name: "insurance_expiry", Label: "Insurance Expiry", Type: "date"},
				{Name: "tier", Label: "Tier", Type: "select", Options: []string{"gold", "silver", "bronze"}},
			},
		},
		"customer": {
			Parent: "customer",
			Fields: []casestack.CustomField{
				{Name: "sales_rep", Label: "Sales Rep", Type: "text", Required: true},
			},
		},
	}
	for parent, f := range fields {
		raw, err := json.Marshal(f)
		if err != nil {
			return err
		}
		if err := s.setIfAbsent(customFieldKey(parent), raw); err != nil {
			return err
		}
	}
	return nil
}

// Seed stores record under id, replacing any existing one.
func (s *Store) Seed(id string, record casestack.Resource) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", record.ResourceName(), err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey(record.ResourceName(), id), raw)
	})
}

// Get returns the raw record, or ErrNotFound.
func (s *Store) Get(resource, id string) (json.RawMessage, error) {
	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(resource, id))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%s %s: %w", resource, id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// Put replaces the record with body. The id field always takes the value
// from the path.
func (s *Store) Put(res resourceDef, id string, body []byte) (json.RawMessage, error) {
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", res.name, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("decoding %s: body must be an object", res.name)
	}
	fields[res.idField] = id

	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey(res.name, id), raw)
	})
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// UpdateShipment applies fn to the stored shipment in a single transaction.
func (s *Store) UpdateShipment(id string, fn func(*casestack.Shipment)) error {
	key := recordKey(casestack.ResourceShipment, id)
	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("shipment %s: %w", id, ErrNotFound)
		}
		if err != nil {
			return err
		}

		var shipment casestack.Shipment
		err = item.Value(func(val []byte) error {
			return json.Unmarshal(val, &shipment)
		})
		if err != nil {
			return err
		}
		fn(&shipment)

		updated, err := json.Marshal(shipment)
		if err != nil {
			return err
		}
		return txn.Set(key, updated)
	})
}

// CustomFields returns the definitions for parent. A parent without
// definitions yields an empty list.
func (s *Store) CustomFields(parent string) (casestack.CustomFields, error) {
	fields := casestack.CustomFields{Parent: parent, Fields: []casestack.CustomField{}}
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(customFieldKey(parent))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &fields)
		})
	})
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return casestack.CustomFields{}, err
	}
	return fields, nil
}

// SetCustomFields replaces the definitions for parent.
func (s *Store) SetCustomFields(parent string, fields casestack.CustomFields) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(customFieldKey(parent), raw)
	})
}

func (s *Store) setIfAbsent(key, raw []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(key, raw)
	})
}

func recordKey(resource, id string) []byte {
	return []byte("record/" + resource + "/" + id)
}

func customFieldKey(parent string) []byte {
	return []byte("customfield/" + strings.ToLower(parent))
}

// badgerLogger routes badger's log output through zap.
type badgerLogger struct {
	*zap.SugaredLogger
}

func (l badgerLogger) Warningf(format string, args ...any) {
	l.Warnf(format, args...)
}
