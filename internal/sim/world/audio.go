package world

// Audio is the sound effect sink. The simulation only starts, stops and
// queries effects; mixing is the implementation's business.
type Audio interface {
	// PlaySFX starts sfx attached to obj (0 for none). loops 0 plays once.
	PlaySFX(sfx, priority int, obj ObjID, loops int)
	// StopSFX stops sfx on obj; sfx -1 stops every effect on obj.
	StopSFX(sfx int, obj ObjID)
	IsSFXPlaying(sfx int, obj ObjID) bool
}

type nopAudio struct{}

func (nopAudio) PlaySFX(int, int, ObjID, int) {}
func (nopAudio) StopSFX(int, ObjID)           {}
func (nopAudio) IsSFXPlaying(int, ObjID) bool { return false }
