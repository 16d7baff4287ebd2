package set

import (
	"encoding/json"
	"errors"

	"gopkg.in/yaml.v3"
)

// targetDoc is the stored form of a Target: {"all": true} or {"key": k}.
type targetDoc[K comparable] struct {
	All bool `json:"all,omitempty" yaml:"all,omitempty"`
	Key *K   `json:"key,omitempty" yaml:"key,omitempty"`
}

var errTargetShape = errors.New("target needs exactly one of all or key")

func (t Target[K]) doc() targetDoc[K] {
	if t.all {
		return targetDoc[K]{All: true}
	}
	k := t.key
	return targetDoc[K]{Key: &k}
}

func (t *Target[K]) fromDoc(d targetDoc[K]) error {
	switch {
	case d.All && d.Key == nil:
		*t = All[K]()
	case !d.All && d.Key != nil:
		*t = Specific(*d.Key)
	default:
		return errTargetShape
	}
	return nil
}

func (t Target[K]) MarshalJSON() ([]byte, error) { return json.Marshal(t.doc()) }

func (t *Target[K]) UnmarshalJSON(data []byte) error {
	var d targetDoc[K]
	if err := json.Unmarshal(data, &d); err != nil {
		return err
	}
	return t.fromDoc(d)
}

func (t Target[K]) MarshalYAML() (any, error) { return t.doc(), nil }

func (t *Target[K]) UnmarshalYAML(value *yaml.Node) error {
	var d targetDoc[K]
	if err := value.Decode(&d); err != nil {
		return err
	}
	return t.fromDoc(d)
}
