package control

import "github.com/elijahnyp/shutter_control/util"

// AffectMaps map a triggering device to the shutter it controls or
// constrains. Built once per room and read-only afterwards.
type AffectMaps struct {
	ButtonShutter map[string]string
	WindowShutter map[string]string
}

// BuildAffectMaps derives the maps from a validated room. When two shutters
// list the same button the later shutter wins. Windows are taken from the
// shutters' triggerWindows first; a window's own affectsShutter overrides.
func BuildAffectMaps(room util.Room) AffectMaps {
	a := AffectMaps{
		ButtonShutter: make(map[string]string),
		WindowShutter: make(map[string]string),
	}
	for _, s := range room.Shutters {
		for _, b := range s.TriggerButtons {
			a.ButtonShutter[b] = s.Id
		}
		for _, w := range s.TriggerWindows {
			a.WindowShutter[w] = s.Id
		}
	}
	for _, w := range room.Windows {
		if w.AffectsShutter != "" {
			a.WindowShutter[w.Id] = w.AffectsShutter
		}
	}
	return a
}

func (a AffectMaps) ShutterForButton(id string) (string, bool) {
	s, ok := a.ButtonShutter[id]
	return s, ok
}

func (a AffectMaps) ShutterForWindow(id string) (string, bool) {
	s, ok := a.WindowShutter[id]
	return s, ok
}
