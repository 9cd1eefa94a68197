package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vivekchamoli/legion2go/internal/learning"
	"github.com/vivekchamoli/legion2go/internal/thermal"
	"github.com/vivekchamoli/legion2go/internal/ui"
	bolt "go.etcd.io/bbolt"
)

const (
	BucketLearning = "learning"
	BucketGains    = "pidGains"

	keyTrainingSamples = "trainingSamples"
)

type Persistence interface {
	Init() error

	LoadTrainingSamples() ([]learning.TrainingSample, error)
	SaveTrainingSamples(samples []learning.TrainingSample) error
	DeleteTrainingSamples() error

	LoadGains(axis thermal.Axis) (thermal.Gains, error)
	SaveGains(axis thermal.Axis, gains thermal.Gains) error
}

type persistence struct {
	dbPath string
}

func NewPersistence(dbPath string) Persistence {
	return &persistence{
		dbPath: dbPath,
	}
}

func (p persistence) Init() (err error) {
	parentDir := filepath.Dir(p.dbPath)
	_, err = os.Stat(parentDir)
	if errors.Is(err, os.ErrNotExist) {
		ui.Info("Creating directory for db: %s", parentDir)
		err = os.MkdirAll(parentDir, 0755)
		if err != nil {
			return err
		}
	}
	return nil
}

func (p persistence) openPersistence() (db *bolt.DB, err error) {
	db, err = bolt.Open(p.dbPath, 0600, &bolt.Options{Timeout: 1 * time.Minute})
	if err != nil {
		return nil, err
	}
	return db, nil
}

func (p persistence) put(bucket string, key string, value interface{}) error {
	db, err := p.openPersistence()
	if err != nil {
		return err
	}
	defer func(db *bolt.DB) {
		_ = db.Close()
	}(db)

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(bucket))
		if err != nil {
			return fmt.Errorf("create bucket: %s", err)
		}
		return b.Put([]byte(key), data)
	})
}

// get unmarshals the value of key into target, a corrupt value is deleted
func (p persistence) get(bucket string, key string, target interface{}) error {
	db, err := p.openPersistence()
	if err != nil {
		return err
	}
	defer func(db *bolt.DB) {
		_ = db.Close()
	}(db)

	corrupt := false
	err = db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return os.ErrNotExist
		}
		v := b.Get([]byte(key))
		if v == nil {
			return os.ErrNotExist
		}

		err := json.Unmarshal(v, target)
		if err != nil {
			// if we cannot read the saved data, delete it
			ui.Warning("Unable to unmarshal saved data for %s/%s: %v", bucket, key, err)
			corrupt = true
			err := b.Delete([]byte(key))
			if err != nil {
				ui.Error("Unable to delete corrupt data key %s: %v", key, err)
			}
		}
		return nil
	})
	if err == nil && corrupt {
		return os.ErrNotExist
	}
	return err
}

func (p persistence) delete(bucket string, key string) error {
	db, err := p.openPersistence()
	if err != nil {
		return err
	}
	defer func(db *bolt.DB) {
		_ = db.Close()
	}(db)

	return db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return nil
		}
		return b.Delete([]byte(key))
	})
}

// LoadTrainingSamples returns the saved learning data, no data is not an error
func (p persistence) LoadTrainingSamples() ([]learning.TrainingSample, error) {
	var samples []learning.TrainingSample
	err := p.get(BucketLearning, keyTrainingSamples, &samples)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return samples, err
}

func (p persistence) SaveTrainingSamples(samples []learning.TrainingSample) error {
	return p.put(BucketLearning, keyTrainingSamples, samples)
}

func (p persistence) DeleteTrainingSamples() error {
	return p.delete(BucketLearning, keyTrainingSamples)
}

// LoadGains returns os.ErrNotExist if no gains were saved for the axis
func (p persistence) LoadGains(axis thermal.Axis) (thermal.Gains, error) {
	var gains thermal.Gains
	err := p.get(BucketGains, string(axis), &gains)
	return gains, err
}

func (p persistence) SaveGains(axis thermal.Axis, gains thermal.Gains) error {
	return p.put(BucketGains, string(axis), gains)
}
