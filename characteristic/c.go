package characteristic

import (
	"github.com/xiam/to"

	"encoding/base64"
	"fmt"
	"math"
	"net/http"
	"sync"
)

// Characteristic value formats.
const (
	FormatString = "string"
	FormatBool   = "bool"
	FormatFloat  = "float"
	FormatUInt8  = "uint8"
	FormatUInt16 = "uint16"
	FormatUInt32 = "uint32"
	FormatUInt64 = "uint64"
	FormatInt32  = "int"
	FormatTLV8   = "tlv8"
	FormatData   = "data"
)

// Characteristic permissions.
const (
	PermissionRead                    = "pr"
	PermissionWrite                   = "pw"
	PermissionEvents                  = "ev"
	PermissionHidden                  = "hd"
	PermissionAdditionalAuthorization = "aa"
	PermissionTimedWrite              = "tw"
	PermissionWriteResponse           = "wr"
)

// Characteristic units.
const (
	UnitPercentage = "percentage"
	UnitArcDegrees = "arcdegrees"
	UnitCelsius    = "celsius"
	UnitLux        = "lux"
	UnitSeconds    = "seconds"
)

// Status codes for characteristic reads and writes.
const (
	StatusSuccess                 = 0
	StatusInsufficientPrivileges  = -70401
	StatusServiceCommunicationErr = -70402
	StatusResourceBusy            = -70403
	StatusReadOnlyCharacteristic  = -70404
	StatusWriteOnlyCharacteristic = -70405
	StatusNotificationNotSupport  = -70406
	StatusOutOfResource           = -70407
	StatusOperationTimedOut       = -70408
	StatusResourceDoesNotExist    = -70409
	StatusInvalidValueInRequest   = -70410
	StatusInsufficientAuth        = -70411
)

// ValueUpdateFunc is called after the value of a characteristic changed.
// The request is nil if the value was updated locally.
type ValueUpdateFunc func(c *C, newValue, oldValue interface{}, request *http.Request)

// C is a characteristic: a single typed and permissioned value with a
// stable instance id inside its accessory.
type C struct {
	Id          uint64
	Type        string
	Permissions []string
	Description string

	Val        interface{}
	Format     string
	Unit       string
	MaxLen     int
	MaxDataLen int
	MaxVal     interface{}
	MinVal     interface{}
	StepVal    interface{}
	ValidVals  []int
	ValidRange []int

	// ValueRequestFunc, if set, provides the value for remote reads.
	ValueRequestFunc func(request *http.Request) interface{}

	// mu guards the value and the subscriber set, which are shared
	// between connection goroutines.
	mu     sync.Mutex
	events map[string]bool

	valUpdateFuncs []ValueUpdateFunc
}

// New returns a new characteristic.
func New() *C {
	return &C{
		events: make(map[string]bool),
	}
}

// Subscribed reports whether the connection at addr subscribed to
// value changes.
func (c *C) Subscribed(addr string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.events[addr]
}

// SetSubscribed subscribes or unsubscribes the connection at addr.
func (c *C) SetSubscribed(addr string, subscribed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.events[addr] = subscribed
}

// Unsubscribe removes the connection at addr from the subscriber set.
func (c *C) Unsubscribe(addr string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.events, addr)
}

// OnCValueUpdate registers fn to be called after the value changed.
func (c *C) OnCValueUpdate(fn ValueUpdateFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.valUpdateFuncs = append(c.valUpdateFuncs, fn)
}

// IsReadable reports whether paired controllers can read the value.
func (c *C) IsReadable() bool {
	return c.hasPermission(PermissionRead)
}

// IsWritable reports whether paired controllers can change the value.
func (c *C) IsWritable() bool {
	return c.hasPermission(PermissionWrite)
}

// IsObservable reports whether paired controllers can subscribe to
// value changes.
func (c *C) IsObservable() bool {
	return c.hasPermission(PermissionEvents)
}

func (c *C) hasPermission(p string) bool {
	for _, perm := range c.Permissions {
		if perm == p {
			return true
		}
	}
	return false
}

// Value returns the current value.
func (c *C) Value() interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.Val
}

// ValueRequest returns the value of the characteristic for a request and
// a status code. Reads of write-only characteristics are refused.
func (c *C) ValueRequest(request *http.Request) (interface{}, int) {
	if request != nil && !c.IsReadable() {
		return nil, StatusWriteOnlyCharacteristic
	}

	if c.ValueRequestFunc != nil {
		// the getter runs outside the lock, it may touch hardware
		if v, err := c.convert(c.ValueRequestFunc(request)); err == nil {
			c.mu.Lock()
			c.Val = v
			c.mu.Unlock()
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.Val, StatusSuccess
}

// SetValueRequest updates the value from a request. The value is coerced
// to the characteristic format and checked against the declared
// constraints; invalid values are refused and leave the value unchanged.
func (c *C) SetValueRequest(value interface{}, request *http.Request) (interface{}, int) {
	if request != nil && !c.IsWritable() {
		return nil, StatusReadOnlyCharacteristic
	}

	v, err := c.convert(value)
	if err != nil {
		return nil, StatusInvalidValueInRequest
	}

	if err := c.validate(v); err != nil {
		return nil, StatusInvalidValueInRequest
	}

	c.update(v, request)

	return c.Val, StatusSuccess
}

// SetValue updates the value locally. Numeric values are clamped into the
// declared range instead of refused.
func (c *C) SetValue(value interface{}) error {
	v, err := c.convert(value)
	if err != nil {
		return err
	}
	c.update(c.clamp(v), nil)

	return nil
}

func (c *C) update(v interface{}, request *http.Request) {
	c.mu.Lock()
	old := c.Val
	c.Val = v
	fns := c.valUpdateFuncs
	c.mu.Unlock()

	// update funcs run outside the lock; they fan events out and may
	// read the characteristic again
	for _, fn := range fns {
		fn(c, v, old, request)
	}
}

// convert coerces a value to the Go type matching the characteristic format.
func (c *C) convert(v interface{}) (interface{}, error) {
	if v == nil {
		return nil, fmt.Errorf("characteristic %s: no value", c.Type)
	}

	switch c.Format {
	case FormatBool:
		switch b := v.(type) {
		case bool:
			return b, nil
		case float64: // json numbers 0 and 1 are valid bools
			if b == 0 || b == 1 {
				return b == 1, nil
			}
		case int:
			if b == 0 || b == 1 {
				return b == 1, nil
			}
		}
		return nil, fmt.Errorf("characteristic %s: %v is not a bool", c.Type, v)
	case FormatFloat:
		return to.Float64(v), nil
	case FormatUInt8, FormatUInt16, FormatUInt32, FormatUInt64, FormatInt32:
		f := to.Float64(v)
		if f != math.Trunc(f) {
			return nil, fmt.Errorf("characteristic %s: %v is not an integer", c.Type, v)
		}
		n := int64(f)
		if min, max := formatBounds(c.Format); n < min || (max > 0 && n > max) {
			return nil, fmt.Errorf("characteristic %s: %d out of bounds for %s", c.Type, n, c.Format)
		}
		return int(n), nil
	case FormatString:
		s := to.String(v)
		if max := c.maxLength(); len(s) > max {
			return nil, fmt.Errorf("characteristic %s: string longer than %d", c.Type, max)
		}
		return s, nil
	case FormatTLV8, FormatData:
		switch b := v.(type) {
		case []byte:
			return b, nil
		case string:
			d, err := base64.StdEncoding.DecodeString(b)
			if err != nil {
				return nil, fmt.Errorf("characteristic %s: %v", c.Type, err)
			}
			if c.MaxDataLen > 0 && len(d) > c.MaxDataLen {
				return nil, fmt.Errorf("characteristic %s: data longer than %d", c.Type, c.MaxDataLen)
			}
			return d, nil
		}
		return nil, fmt.Errorf("characteristic %s: %T is not base64 data", c.Type, v)
	}

	return v, nil
}

// validate checks v against minimum, maximum and the valid value sets.
// The step value is advisory and not enforced.
func (c *C) validate(v interface{}) error {
	switch v.(type) {
	case int, float64:
	default:
		return nil
	}

	f := to.Float64(v)
	if c.MinVal != nil && f < to.Float64(c.MinVal) {
		return fmt.Errorf("characteristic %s: %v below minimum %v", c.Type, v, c.MinVal)
	}
	if c.MaxVal != nil && f > to.Float64(c.MaxVal) {
		return fmt.Errorf("characteristic %s: %v above maximum %v", c.Type, v, c.MaxVal)
	}

	if n, ok := v.(int); ok {
		if len(c.ValidRange) == 2 && (n < c.ValidRange[0] || n > c.ValidRange[1]) {
			return fmt.Errorf("characteristic %s: %d outside valid range", c.Type, n)
		}
		if len(c.ValidVals) > 0 {
			for _, valid := range c.ValidVals {
				if n == valid {
					return nil
				}
			}
			return fmt.Errorf("characteristic %s: %d is not a valid value", c.Type, n)
		}
	}

	return nil
}

// clamp moves numeric values into the declared range.
func (c *C) clamp(v interface{}) interface{} {
	switch v.(type) {
	case int:
		n := v.(int)
		if c.MinVal != nil && n < int(to.Int64(c.MinVal)) {
			n = int(to.Int64(c.MinVal))
		}
		if c.MaxVal != nil && n > int(to.Int64(c.MaxVal)) {
			n = int(to.Int64(c.MaxVal))
		}
		return n
	case float64:
		f := v.(float64)
		if c.MinVal != nil && f < to.Float64(c.MinVal) {
			f = to.Float64(c.MinVal)
		}
		if c.MaxVal != nil && f > to.Float64(c.MaxVal) {
			f = to.Float64(c.MaxVal)
		}
		return f
	}

	return v
}

func (c *C) maxLength() int {
	if c.MaxLen > 0 {
		return c.MaxLen
	}
	return 256
}

func formatBounds(format string) (int64, int64) {
	switch format {
	case FormatUInt8:
		return 0, math.MaxUint8
	case FormatUInt16:
		return 0, math.MaxUint16
	case FormatUInt32:
		return 0, math.MaxUint32
	case FormatUInt64:
		return 0, math.MaxInt64
	case FormatInt32:
		return math.MinInt32, math.MaxInt32
	}
	return 0, 0
}
