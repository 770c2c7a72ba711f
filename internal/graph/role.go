package graph

// Role tags the kind of contribution a relationship records. The set is
// closed: mapping tables in the credit package must resolve every upstream
// relation type to one of these values.
type Role string

// Performer and credit roles.
const (
	RolePrimaryArtist      Role = "primary_artist"
	RoleFeatured           Role = "featured"
	RoleRemixer            Role = "remixer"
	RoleProducer           Role = "producer"
	RoleCoProducer         Role = "co_producer"
	RoleExecutiveProducer  Role = "executive_producer"
	RoleVocalProducer      Role = "vocal_producer"
	RoleAdditionalProducer Role = "additional_producer"
	RoleSongwriter         Role = "songwriter"
	RoleComposer           Role = "composer"
	RoleLyricist           Role = "lyricist"
	RoleArranger           Role = "arranger"
	RoleWriter             Role = "writer"
	RoleEngineer           Role = "engineer"
	RoleMixingEngineer     Role = "mixing_engineer"
	RoleMasteringEngineer  Role = "mastering_engineer"
	RoleRecordingEngineer  Role = "recording_engineer"
	RoleAssistantEngineer  Role = "assistant_engineer"
	RoleProgrammer         Role = "programmer"
	RoleConductor          Role = "conductor"
	RoleOrchestra          Role = "orchestra"
	RoleVocals             Role = "vocals"
	RoleLeadVocals         Role = "lead_vocals"
	RoleBackgroundVocals   Role = "background_vocals"
)

// Instrument roles.
const (
	RoleGuitar          Role = "guitar"
	RoleBassGuitar      Role = "bass_guitar"
	RoleDrums           Role = "drums"
	RolePercussion      Role = "percussion"
	RoleKeyboards       Role = "keyboards"
	RolePiano           Role = "piano"
	RoleSynthesizer     Role = "synthesizer"
	RoleOrgan           Role = "organ"
	RoleStrings         Role = "strings"
	RoleViolin          Role = "violin"
	RoleCello           Role = "cello"
	RoleHorns           Role = "horns"
	RoleTrumpet         Role = "trumpet"
	RoleSaxophone       Role = "saxophone"
	RoleTrombone        Role = "trombone"
	RoleFlute           Role = "flute"
	RoleTurntables      Role = "turntables"
	RoleOtherInstrument Role = "other_instrument"
)

// Structural roles.
const (
	RoleMemberOf   Role = "member_of"
	RoleSignedTo   Role = "signed_to"
	RoleReleasedOn Role = "released_on"
	RoleContains   Role = "contains"
)

var allRoles = []Role{
	RolePrimaryArtist, RoleFeatured, RoleRemixer,
	RoleProducer, RoleCoProducer, RoleExecutiveProducer, RoleVocalProducer, RoleAdditionalProducer,
	RoleSongwriter, RoleComposer, RoleLyricist, RoleArranger, RoleWriter,
	RoleEngineer, RoleMixingEngineer, RoleMasteringEngineer, RoleRecordingEngineer, RoleAssistantEngineer,
	RoleProgrammer, RoleConductor, RoleOrchestra,
	RoleVocals, RoleLeadVocals, RoleBackgroundVocals,
	RoleGuitar, RoleBassGuitar, RoleDrums, RolePercussion, RoleKeyboards, RolePiano,
	RoleSynthesizer, RoleOrgan, RoleStrings, RoleViolin, RoleCello, RoleHorns,
	RoleTrumpet, RoleSaxophone, RoleTrombone, RoleFlute, RoleTurntables, RoleOtherInstrument,
	RoleMemberOf, RoleSignedTo, RoleReleasedOn, RoleContains,
}

var roleSet = func() map[Role]struct{} {
	m := make(map[Role]struct{}, len(allRoles))
	for _, r := range allRoles {
		m[r] = struct{}{}
	}
	return m
}()

// AllRoles returns every role tag in display order.
func AllRoles() []Role {
	out := make([]Role, len(allRoles))
	copy(out, allRoles)
	return out
}

// Valid reports whether r belongs to the closed role set.
func (r Role) Valid() bool {
	_, ok := roleSet[r]
	return ok
}
