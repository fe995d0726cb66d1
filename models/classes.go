package models

import (
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-retinaface/models/model"
)

// OutputClass represents one detection label.
type OutputClass struct {
	// The integer index of the confidence channel.
	Index int
	// The human-readable label.
	Name string
}

// OutputClassSet ties a family to its full list of labels.
type OutputClassSet struct {
	// Class set identifier.
	Family model.Family
	// Classes in channel order.
	Classes []OutputClass
	// nameToIdx for fast lookup by name
	nameToIdx map[string]int
}

// RetinaFaceClasses are the two confidence channels shared by every
// RetinaFace checkpoint.
var RetinaFaceClasses = &OutputClassSet{
	Family: model.ModelFamilyRetinaFace,
	Classes: []OutputClass{
		{Index: 0, Name: "background"},
		{Index: 1, Name: "face"},
	},
}

// BuildNameIndexMap builds or rebuilds the name->index map.
func (s *OutputClassSet) BuildNameIndexMap() {
	s.nameToIdx = make(map[string]int, len(s.Classes))
	for _, c := range s.Classes {
		s.nameToIdx[c.Name] = c.Index
	}
}

// ClassManager holds all registered class sets.
type ClassManager struct {
	sets map[model.Family]*OutputClassSet
}

// NewClassManager initializes and registers the given sets.
func NewClassManager(allSets ...*OutputClassSet) *ClassManager {
	mgr := &ClassManager{sets: make(map[model.Family]*OutputClassSet)}
	for _, set := range allSets {
		set.BuildNameIndexMap()
		mgr.sets[set.Family] = set
	}
	return mgr
}

// DefaultClasses holds the class sets of every registered family.
var DefaultClasses = NewClassManager(RetinaFaceClasses)

// GetName returns the class name for a given family and index.
func (m *ClassManager) GetName(family model.Family, idx int) (string, error) {
	set, ok := m.sets[family]
	if !ok {
		return "", errors.Errorf("family %q not registered", family)
	}
	if idx < 0 || idx >= len(set.Classes) {
		return "", errors.Errorf("index %d out of range for family %q", idx, family)
	}
	return set.Classes[idx].Name, nil
}

// GetIndex returns the class index for a given family and name.
func (m *ClassManager) GetIndex(family model.Family, name string) (int, error) {
	set, ok := m.sets[family]
	if !ok {
		return -1, errors.Errorf("family %q not registered", family)
	}
	idx, ok := set.nameToIdx[name]
	if !ok {
		return -1, errors.Errorf("name %q not found in family %q", name, family)
	}
	return idx, nil
}
