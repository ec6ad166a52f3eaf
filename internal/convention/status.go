package convention

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// FamilleStatut identifies the amendment family of a convention version.
type FamilleStatut int

const (
	FamilleInitial FamilleStatut = iota
	FamilleAnniversaire
	FamilleStatutJuridique
	FamilleEntite
	FamilleLocal
	FamilleResiliation
)

// Statut is the typed status of a convention version: a family plus, for the
// counted families, a per-family sequence number. The stored column keeps the
// display label for the frontend; all counter logic runs on the typed value.
type Statut struct {
	Famille FamilleStatut
	N       int
}

const labelResiliation = "RÉSILIATION"

// Label renders the French display label persisted in convdesc.statut.
func (s Statut) Label() string {
	switch s.Famille {
	case FamilleInitial:
		return "INITIAL"
	case FamilleAnniversaire:
		return fmt.Sprintf("AVENANT %dA", s.N)
	case FamilleStatutJuridique:
		return fmt.Sprintf("AVENANT STATUT JURIDIQUE %d", s.N)
	case FamilleEntite:
		return fmt.Sprintf("AVENANT ENTITE %d", s.N)
	case FamilleLocal:
		return fmt.Sprintf("AVENANT LOCAL %d", s.N)
	case FamilleResiliation:
		return labelResiliation
	}
	return ""
}

// NomDocument is the filename stem expected for the document backing this
// version (spaces become underscores, accents dropped).
func (s Statut) NomDocument() string {
	if s.Famille == FamilleResiliation {
		return "RESILIATION"
	}
	return strings.ReplaceAll(s.Label(), " ", "_")
}

var (
	reAnniversaire    = regexp.MustCompile(`^AVENANT (\d+)A$`)
	reStatutJuridique = regexp.MustCompile(`^AVENANT STATUT JURIDIQUE (\d+)$`)
	reEntite          = regexp.MustCompile(`^AVENANT ENTITE (\d+)$`)
	reLocal           = regexp.MustCompile(`^AVENANT LOCAL (\d+)$`)
)

// ParseStatut parses a stored label back into its typed form. Every label
// produced by Label round-trips; anything else is an error.
func ParseStatut(label string) (Statut, error) {
	label = strings.TrimSpace(label)
	switch label {
	case "INITIAL":
		return Statut{Famille: FamilleInitial}, nil
	case labelResiliation, "RESILIATION":
		return Statut{Famille: FamilleResiliation}, nil
	}
	for famille, re := range map[FamilleStatut]*regexp.Regexp{
		FamilleAnniversaire:    reAnniversaire,
		FamilleStatutJuridique: reStatutJuridique,
		FamilleEntite:          reEntite,
		FamilleLocal:           reLocal,
	} {
		if m := re.FindStringSubmatch(label); m != nil {
			n, err := strconv.Atoi(m[1])
			if err != nil || n < 1 {
				return Statut{}, fmt.Errorf("statut %q: compteur invalide", label)
			}
			return Statut{Famille: famille, N: n}, nil
		}
	}
	return Statut{}, fmt.Errorf("statut inconnu: %q", label)
}

// ProchainStatut computes the status of the next version for an amendment of
// the given family: the per-family counter is the number of prior versions of
// that family plus one. Counters are never reused.
func ProchainStatut(historique []Statut, famille FamilleStatut) Statut {
	if famille == FamilleInitial || famille == FamilleResiliation {
		return Statut{Famille: famille}
	}
	n := 1
	for _, s := range historique {
		if s.Famille == famille {
			n++
		}
	}
	return Statut{Famille: famille, N: n}
}

// AnniversairesManquants returns, in ascending order, the anniversary
// numbers 1..age that have no AVENANT {k}A version in the history.
func AnniversairesManquants(historique []Statut, age int) []int {
	presents := make(map[int]bool)
	for _, s := range historique {
		if s.Famille == FamilleAnniversaire {
			presents[s.N] = true
		}
	}
	var manquants []int
	for k := 1; k <= age; k++ {
		if !presents[k] {
			manquants = append(manquants, k)
		}
	}
	return manquants
}
