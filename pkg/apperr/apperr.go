// Package apperr regroupe les erreurs typées du nettoyage et du moteur RFM.
// Les appelants testent le Kind ; la couche HTTP en déduit le code de statut.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind est la catégorie d'une erreur.
type Kind int

const (
	// KindUnknown : aucune catégorie précisée.
	KindUnknown Kind = iota
	// KindParse : les octets reçus ne sont pas un texte délimité valide.
	KindParse
	// KindSchema : une colonne obligatoire manque après normalisation.
	KindSchema
	// KindEmptyResult : plus aucune ligne là où il en faut.
	KindEmptyResult
	// KindMissingKey : pas de colonne identifiant client.
	KindMissingKey
	// KindDegenerateBinning : impossible de former les quintiles.
	KindDegenerateBinning
	// KindNotFound : jeu de données inconnu.
	KindNotFound
	// KindBadRequest : requête mal formée.
	KindBadRequest
	// KindInternal : erreur interne inattendue.
	KindInternal
)

var kindNames = map[Kind]string{
	KindUnknown:           "unknown",
	KindParse:             "parse_error",
	KindSchema:            "schema_error",
	KindEmptyResult:       "empty_result",
	KindMissingKey:        "missing_key",
	KindDegenerateBinning: "degenerate_binning",
	KindNotFound:          "not_found",
	KindBadRequest:        "bad_request",
	KindInternal:          "internal",
}

// String renvoie le nom stable (snake_case) de la catégorie.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[KindUnknown]
}

// Error porte un Kind, un message et, au besoin, la cause et des détails.
type Error struct {
	Kind    Kind
	Message string
	Op      string      // opération en échec (facultatif)
	Err     error       // cause (facultatif)
	Details interface{} // détails renvoyés au client (facultatif)
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = fmt.Sprintf("%s: %s", e.Op, msg)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap expose la cause à errors.Is / errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus : 400 pour les entrées invalides, 422 pour les données
// inexploitables, 404, sinon 500.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindParse, KindSchema, KindBadRequest:
		return http.StatusBadRequest
	case KindEmptyResult, KindMissingKey, KindDegenerateBinning:
		return http.StatusUnprocessableEntity
	case KindNotFound:
		return http.StatusNotFound
	case KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap enveloppe err sous le Kind donné.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func (e *Error) WithOp(op string) *Error {
	e.Op = op
	return e
}

func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// Parse enveloppe l'échec du lecteur CSV.
func Parse(err error) *Error {
	return Wrap(KindParse, "cannot parse delimited text", err)
}

// Schema liste les colonnes manquantes (aussi dans Details).
func Schema(missing []string) *Error {
	return New(KindSchema, fmt.Sprintf("missing required columns: %v", missing)).WithDetails(missing)
}

func EmptyResult(message string) *Error {
	return New(KindEmptyResult, message)
}

func MissingKey(column string) *Error {
	return New(KindMissingKey, fmt.Sprintf("missing customer identifier column %q", column)).WithDetails(column)
}

// DegenerateBinning nomme l'axe en cause dans Details.
func DegenerateBinning(axis, reason string) *Error {
	return New(KindDegenerateBinning, fmt.Sprintf("cannot form quintiles on %s: %s", axis, reason)).WithDetails(axis)
}

func NotFound(message string) *Error {
	return New(KindNotFound, message)
}

func BadRequest(message string) *Error {
	return New(KindBadRequest, message)
}

func Internal(message string) *Error {
	return New(KindInternal, message)
}

// As renvoie le premier *Error de la chaîne.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// GetKind renvoie le Kind de la chaîne, KindUnknown sans *Error.
func GetKind(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindUnknown
}

// Is indique si la chaîne porte une erreur de ce Kind.
func Is(err error, kind Kind) bool {
	return GetKind(err) == kind
}
