package device

// Fanout sends every event to all of its devices. Parameters are read from
// the first device and written to all.
type Fanout []Device

func (f Fanout) ScheduleEvent(at float64, ev Event) {
	for _, d := range f {
		d.ScheduleEvent(at, ev)
	}
}

func (f Fanout) Params() []Param {
	if len(f) == 0 {
		return nil
	}
	return f[0].Params()
}

func (f Fanout) Param(name string) (Param, bool) {
	if len(f) == 0 {
		return Param{}, false
	}
	return f[0].Param(name)
}

func (f Fanout) SetParam(name string, value float64) error {
	for _, d := range f {
		if err := d.SetParam(name, value); err != nil {
			return err
		}
	}
	return nil
}
