package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"retail-rfm/pkg/apperr"
)

/*
COLONNES → noms canoniques de l'export de transactions
*/
const (
	ColInvoiceNo   = "InvoiceNo"
	ColStockCode   = "StockCode"
	ColDescription = "Description"
	ColQuantity    = "Quantity"
	ColInvoiceDate = "InvoiceDate"
	ColUnitPrice   = "UnitPrice"
	ColCustomerID  = "CustomerID"
	ColCountry     = "Country"
	ColRevenue     = "Revenue"
)

// Optional porte une valeur facultative : colonne absente ou cellule vide => Set=false.
type Optional[T any] struct {
	Value T
	Set   bool
}

// Some construit une valeur présente.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Set: true}
}

// Get renvoie la valeur et sa présence.
func (o Optional[T]) Get() (T, bool) {
	return o.Value, o.Set
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Set {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		*o = Optional[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}

/*
LOAD → types simples pour les données brutes (fichier ou table SQL).
*/

// RawTable représente l'export brut : une ligne d'en-tête et des cellules texte.
type RawTable struct {
	Header []string
	Rows   [][]string
}

// Transaction représente une ligne ayant survécu au nettoyage.
// Invariants : Quantity > 0, UnitPrice > 0, Revenue = Quantity × UnitPrice.
type Transaction struct {
	InvoiceNo   string           `json:"invoice_no"`
	StockCode   Optional[string] `json:"stock_code"`
	Description Optional[string] `json:"description"`
	Quantity    int64            `json:"quantity"`
	InvoiceDate time.Time        `json:"invoice_date"`
	UnitPrice   float64          `json:"unit_price"`
	CustomerID  Optional[string] `json:"customer_id"`
	Country     Optional[string] `json:"country"`
	Revenue     float64          `json:"revenue"`
}

// Schema indique quelles colonnes facultatives existent dans la source.
type Schema struct {
	StockCode   bool `json:"stock_code"`
	Description bool `json:"description"`
	CustomerID  bool `json:"customer_id"`
	Country     bool `json:"country"`
}

// Table est la table nettoyée, immuable après construction.
type Table struct {
	Schema Schema        `json:"schema"`
	Rows   []Transaction `json:"rows"`
}

// Len renvoie le nombre de transactions.
func (t Table) Len() int {
	return len(t.Rows)
}

// Head renvoie au plus n premières transactions (n <= 0 : toutes).
func (t Table) Head(n int) Table {
	if n <= 0 || n >= len(t.Rows) {
		return t
	}
	return Table{Schema: t.Schema, Rows: t.Rows[:n]}
}

// CustomerTable est une Table dont le schéma porte l'identifiant client.
// Seul Table.Customers peut la construire.
type CustomerTable struct {
	table Table
}

// Customers renvoie la vue client, ou une erreur MissingKey si la colonne est absente.
func (t Table) Customers() (CustomerTable, error) {
	if !t.Schema.CustomerID {
		return CustomerTable{}, apperr.MissingKey(ColCustomerID)
	}
	return CustomerTable{table: t}, nil
}

// Rows renvoie les transactions sous-jacentes.
func (c CustomerTable) Rows() []Transaction {
	return c.table.Rows
}

// DropReasons ventile les lignes écartées par filtre (le premier filtre qui rejette compte).
type DropReasons struct {
	Cancelled  int `json:"cancelled"`
	Incomplete int `json:"incomplete"`
	Invalid    int `json:"invalid"`
}

// Total renvoie la somme des lignes écartées.
func (d DropReasons) Total() int {
	return d.Cancelled + d.Incomplete + d.Invalid
}

// CleaningReport contient les métadonnées du nettoyage.
type CleaningReport struct {
	RawRows     int                 `json:"raw_rows"`
	CleanedRows int                 `json:"cleaned_rows"`
	DroppedRows int                 `json:"dropped_rows"`
	Dropped     DropReasons         `json:"dropped"`
	MinDate     Optional[time.Time] `json:"min_date"`
	MaxDate     Optional[time.Time] `json:"max_date"`
}

/*
COMPUTE → segmentation RFM par client
*/

// Segment est l'un des libellés fixes de la segmentation.
type Segment string

const (
	SegmentChampions         Segment = "Champions"
	SegmentLoyal             Segment = "Loyal"
	SegmentNewCustomers      Segment = "New Customers"
	SegmentAtRiskFrequency   Segment = "At Risk (High Frequency)"
	SegmentAtRiskMonetary    Segment = "At Risk (High Monetary)"
	SegmentPotentialLoyalist Segment = "Potential Loyalist"
	SegmentOthers            Segment = "Others"
)

// Segments liste les libellés dans l'ordre d'évaluation des règles.
var Segments = []Segment{
	SegmentChampions,
	SegmentLoyal,
	SegmentNewCustomers,
	SegmentAtRiskFrequency,
	SegmentAtRiskMonetary,
	SegmentPotentialLoyalist,
	SegmentOthers,
}

// Scores regroupe les trois notes de quintile (1 à 5).
type Scores struct {
	R int `json:"r"`
	F int `json:"f"`
	M int `json:"m"`
}

// Code renvoie le score composite sur 3 caractères (ex: "545").
func (s Scores) Code() string {
	return fmt.Sprintf("%d%d%d", s.R, s.F, s.M)
}

// CustomerRFM contient les métriques RFM calculées pour un client.
type CustomerRFM struct {
	CustomerID   string    `json:"customer_id"`
	LastPurchase time.Time `json:"last_purchase"`
	Frequency    int       `json:"frequency"` // factures distinctes
	Monetary     float64   `json:"monetary"`  // somme du revenu
	Recency      int       `json:"recency"`   // jours depuis l'horodatage de référence
	Scores
	RFMScore string  `json:"rfm_score"`
	Segment  Segment `json:"segment"`
}

// SegmentSummary agrège la table RFM par segment.
type SegmentSummary struct {
	Segment       Segment `json:"segment"`
	Customers     int     `json:"customers"`
	Revenue       float64 `json:"revenue"`
	CustomerShare float64 `json:"customer_share"`
	RevenueShare  float64 `json:"revenue_share"`
}

/*
SESSION → jeu de données chargé, identifié par l'empreinte de son contenu
*/

// Dataset est une table nettoyée et son rapport, identifiés par le hash des octets source.
type Dataset struct {
	ID       string         `json:"id"`
	Table    Table          `json:"table"`
	Report   CleaningReport `json:"report"`
	LoadedAt time.Time      `json:"loaded_at"`
}

// Delivery est la charge remise aux destinations (fichier, base, bus, archive).
type Delivery struct {
	DatasetID   string           `json:"dataset_id"`
	Report      CleaningReport   `json:"report"`
	Customers   []CustomerRFM    `json:"customers"`
	Segments    []SegmentSummary `json:"segments"`
	GeneratedAt time.Time        `json:"generated_at"`
}

/*
CONFIG → paramètres globaux
*/
// Config contient les paramètres passés à la fonction de calcul.
type Config struct {
	CancellationPrefix string // préfixe des avoirs, "C" par défaut
	IngestWorkers      int    // filtrage parallèle par blocs si > 1
	RFMWorkers         int    // agrégation parallèle par partition si > 1
	StatsMaxRows       int    // plafond des statistiques (0 = toutes les lignes)
	TopN               int    // taille des classements
	Verbose            bool   // Flag pour activer les logs détaillés.
}
