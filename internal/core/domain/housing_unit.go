package domain

import "time"

// Stages is the fixed construction checklist tracked for every housing unit,
// in display order.
var Stages = []string{
	"Factibilidad", "TE1", "Empalme", "TDA",
	"Canalización", "Cableado", "Bomba de agua", "Alimentador de bomba",
	"Soldadura", "Artefactado", "Extractores", "Pruebas eléctricas", "Rotulado",
}

// IsStage reports whether name belongs to the checklist vocabulary.
func IsStage(name string) bool {
	for _, s := range Stages {
		if s == name {
			return true
		}
	}
	return false
}

// Checklist maps a stage name to its completion flag. Missing keys are false.
type Checklist map[string]bool

// Toggle returns a copy of c with exactly one key flipped.
func (c Checklist) Toggle(stage string) Checklist {
	next := c.Clone()
	next[stage] = !c[stage]
	return next
}

// With returns a copy of c with stage set to done.
func (c Checklist) With(stage string, done bool) Checklist {
	next := c.Clone()
	next[stage] = done
	return next
}

func (c Checklist) Clone() Checklist {
	next := make(Checklist, len(c)+1)
	for k, v := range c {
		next[k] = v
	}
	return next
}

// Completed lists the done stages in checklist order, followed by any
// unknown keys the backend returned that are also marked done.
func (c Checklist) Completed() []string {
	out := make([]string, 0, len(c))
	for _, s := range Stages {
		if c[s] {
			out = append(out, s)
		}
	}
	for k, v := range c {
		if v && !IsStage(k) {
			out = append(out, k)
		}
	}
	return out
}

// HousingUnit is one dwelling inside a project with its checklist, free-text
// comments and the public URLs of its evidence photos.
type HousingUnit struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Name      string    `json:"name"`
	Status    Checklist `json:"status"`
	Comments  string    `json:"comments"`
	Images    []string  `json:"images"`
	CreatedAt time.Time `json:"created_at"`
}

// HousingUnitPatch updates a single housing unit. Nil fields are untouched.
type HousingUnitPatch struct {
	Name     *string
	Status   Checklist
	Comments *string
	Images   []string
	// SetImages distinguishes an emptied image list from an untouched one.
	SetImages bool
}

func (p HousingUnitPatch) Fields() map[string]any {
	f := make(map[string]any, 4)
	if p.Name != nil {
		f["name"] = *p.Name
	}
	if p.Status != nil {
		f["status"] = p.Status
	}
	if p.Comments != nil {
		f["comments"] = *p.Comments
	}
	if p.SetImages {
		images := p.Images
		if images == nil {
			images = []string{}
		}
		f["images"] = images
	}
	return f
}

func (p HousingUnitPatch) Apply(u HousingUnit) HousingUnit {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Status != nil {
		u.Status = p.Status.Clone()
	}
	if p.Comments != nil {
		u.Comments = *p.Comments
	}
	if p.SetImages {
		u.Images = append([]string(nil), p.Images...)
	}
	return u
}
