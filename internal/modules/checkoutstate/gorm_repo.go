package checkoutstate

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StateRow is the MySQL representation of a checkout state.
type StateRow struct {
	ID           string         `gorm:"type:char(36);primaryKey"`
	CustomerJSON datatypes.JSON `gorm:"type:json"`
	MethodsJSON  datatypes.JSON `gorm:"type:json;not null"`
	CreatedAt    time.Time      `gorm:"type:datetime(3);not null"`
	UpdatedAt    time.Time      `gorm:"type:datetime(3);not null;index:ix_checkout_states_updated_at"`
}

func (StateRow) TableName() string { return "checkout_states" }

type GormRepo struct {
	db *gorm.DB
}

func NewGormRepo(db *gorm.DB) *GormRepo {
	return &GormRepo{db: db}
}

func (r *GormRepo) Load(ctx context.Context, sessionID string) (State, error) {
	if sessionID == "" {
		return State{}, ErrInvalidSessionID
	}
	var row StateRow
	err := r.db.WithContext(ctx).First(&row, "id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NewState(), nil
	}
	if err != nil {
		return State{}, err
	}
	return row.toState()
}

// Update locks the row (SELECT ... FOR UPDATE) for the duration of fn. The
// first write of a session inserts the row; if a concurrent request won that
// insert the whole transaction is replayed against the stored row.
func (r *GormRepo) Update(ctx context.Context, sessionID string, fn func(*State)) (State, error) {
	if sessionID == "" {
		return State{}, ErrInvalidSessionID
	}

	var out State
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		out, err = r.update(ctx, sessionID, fn)
		if !isRetryable(err) {
			return out, err
		}
	}
	return State{}, err
}

func (r *GormRepo) update(ctx context.Context, sessionID string, fn func(*State)) (State, error) {
	var out State
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row StateRow
		found := true
		e := tx.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&row, "id = ?", sessionID).Error

		st := NewState()
		switch {
		case errors.Is(e, gorm.ErrRecordNotFound):
			found = false
		case e != nil:
			return e
		default:
			var derr error
			if st, derr = row.toState(); derr != nil {
				return derr
			}
		}

		fn(&st)

		customerJSON, methodsJSON, err := encodeColumns(st)
		if err != nil {
			return err
		}

		now := time.Now()
		if !found {
			row = StateRow{
				ID:           sessionID,
				CustomerJSON: customerJSON,
				MethodsJSON:  methodsJSON,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			if err := tx.WithContext(ctx).Create(&row).Error; err != nil {
				return err
			}
		} else {
			if err := tx.WithContext(ctx).Model(&StateRow{}).
				Where("id = ?", sessionID).
				Updates(map[string]any{
					"customer_json": customerJSON,
					"methods_json":  methodsJSON,
					"updated_at":    now,
				}).Error; err != nil {
				return err
			}
		}

		out = st
		return nil
	})
	if err != nil {
		return State{}, err
	}
	return out, nil
}

func (r *GormRepo) Delete(ctx context.Context, sessionID string) error {
	return r.db.WithContext(ctx).Delete(&StateRow{}, "id = ?", sessionID).Error
}

// PurgeBefore removes states untouched since cutoff.
func (r *GormRepo) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("updated_at < ?", cutoff).Delete(&StateRow{})
	return res.RowsAffected, res.Error
}

func (row StateRow) toState() (State, error) {
	st := State{PaymentMethods: []PaymentMethod{}}
	if len(row.CustomerJSON) > 0 && string(row.CustomerJSON) != "null" {
		var c Customer
		if err := json.Unmarshal(row.CustomerJSON, &c); err != nil {
			return State{}, err
		}
		st.Customer = &c
	}
	if len(row.MethodsJSON) > 0 {
		if err := json.Unmarshal(row.MethodsJSON, &st.PaymentMethods); err != nil {
			return State{}, err
		}
	}
	return st, nil
}

func encodeColumns(st State) (datatypes.JSON, datatypes.JSON, error) {
	var customerJSON datatypes.JSON
	if st.Customer != nil {
		b, err := json.Marshal(st.Customer)
		if err != nil {
			return nil, nil, err
		}
		customerJSON = datatypes.JSON(b)
	}
	methods := st.PaymentMethods
	if methods == nil {
		methods = []PaymentMethod{}
	}
	b, err := json.Marshal(methods)
	if err != nil {
		return nil, nil, err
	}
	return customerJSON, datatypes.JSON(b), nil
}

// isRetryable reports a lost race on the first insert: a duplicate key
// (1062) or the deadlock InnoDB raises between two gap locks (1213).
func isRetryable(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && (me.Number == 1062 || me.Number == 1213)
}
