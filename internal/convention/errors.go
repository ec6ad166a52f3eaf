package convention

import "errors"

// Sentinel errors mapped to HTTP statuses by the handlers.
var (
	// ErrConventionIntrouvable: no row for the requested (convention, version).
	ErrConventionIntrouvable = errors.New("convention introuvable")

	// ErrBaremeIntrouvable: no rate row covers the surface/type/date asked
	// for. This is a data-completeness error and is never defaulted to zero.
	ErrBaremeIntrouvable = errors.New("barème introuvable pour cette surface à cette date")

	// ErrVersionObsolete: the caller targeted a version that has been
	// superseded (stale read, or equipment mutation on a historical version).
	ErrVersionObsolete = errors.New("version obsolète: la convention a été modifiée")

	// ErrTypeConventionInconnu: a convention kind the amendment engine does
	// not know how to version.
	ErrTypeConventionInconnu = errors.New("type de convention inconnu")

	// ErrLocalRequis: a pépinière convention needs at least one unit.
	ErrLocalRequis = errors.New("une convention pépinière exige au moins un local")
)
