// Package service implements the services of the HAP object model.
package service

import "github.com/boundless-engineering/hap/characteristic"

// S is a service: a group of related characteristics with a stable
// instance id inside its accessory.
type S struct {
	Id      uint64
	Type    string
	Cs      []*characteristic.C
	Hidden  bool
	Primary bool
	Linked  []*S
}

// New returns a new service of the given type.
func New(typ string) *S {
	return &S{
		Type: typ,
	}
}

// AddC adds a characteristic to the service.
func (s *S) AddC(c *characteristic.C) {
	s.Cs = append(s.Cs, c)
}

// AddLinked links another service to s.
func (s *S) AddLinked(other *S) {
	s.Linked = append(s.Linked, other)
}
