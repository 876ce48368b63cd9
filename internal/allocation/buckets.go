package allocation

import "treasury/internal/models"

// Class is how a bucket participates in the monthly split.
type Class int

const (
	ClassUnknown Class = iota
	// ClassTenPercent income is split 10% national, 90% local.
	ClassTenPercent
	// ClassNational income goes entirely to the national fund.
	ClassNational
	// ClassLocal income stays with the church.
	ClassLocal
	ClassUtilityExpense
	ClassOtherExpense
	// ClassPastoralHonorarium lines are ignored; pastoral pay is the residual.
	ClassPastoralHonorarium
)

// Income buckets.
const (
	BucketTithe         = "tithe"
	BucketOffering      = "offering"
	BucketMissions      = "missions"
	BucketLazosAmor     = "lazos_amor"
	BucketMisionPosible = "mision_posible"
	BucketMensCouncil   = "mens_council"
	BucketYouthAssoc    = "youth_association"
	BucketBibleInst     = "bible_institute"
	BucketPastoralTithe = "pastoral_tithe"
	BucketAnnexes       = "annexes"
	BucketChildren      = "children"
	BucketWomen         = "women"
	BucketMen           = "men"
	BucketYouth         = "youth"
	BucketOtherIncome   = "other_income"
)

// Expense buckets.
const (
	BucketElectricity        = "electricity"
	BucketWater              = "water"
	BucketGarbage            = "garbage"
	BucketRent               = "rent"
	BucketMaintenance        = "maintenance"
	BucketSupplies           = "supplies"
	BucketOtherExpense       = "other_expense"
	BucketPastoralHonorarium = "pastoral_honorarium"
)

var buckets = map[string]Class{
	BucketTithe:         ClassTenPercent,
	BucketOffering:      ClassTenPercent,
	BucketMissions:      ClassNational,
	BucketLazosAmor:     ClassNational,
	BucketMisionPosible: ClassNational,
	BucketMensCouncil:   ClassNational,
	BucketYouthAssoc:    ClassNational,
	BucketBibleInst:     ClassNational,
	BucketPastoralTithe: ClassNational,
	BucketAnnexes:       ClassLocal,
	BucketChildren:      ClassLocal,
	BucketWomen:         ClassLocal,
	BucketMen:           ClassLocal,
	BucketYouth:         ClassLocal,
	BucketOtherIncome:   ClassLocal,

	BucketElectricity:        ClassUtilityExpense,
	BucketWater:              ClassUtilityExpense,
	BucketGarbage:            ClassUtilityExpense,
	BucketRent:               ClassOtherExpense,
	BucketMaintenance:        ClassOtherExpense,
	BucketSupplies:           ClassOtherExpense,
	BucketOtherExpense:       ClassOtherExpense,
	BucketPastoralHonorarium: ClassPastoralHonorarium,
}

// ClassOf returns the class of bucket, ClassUnknown if it is not recognized.
func ClassOf(bucket string) Class {
	return buckets[bucket]
}

// LineTypeOf returns the line type a bucket's lines must carry.
func LineTypeOf(c Class) models.LineType {
	switch c {
	case ClassUtilityExpense, ClassOtherExpense, ClassPastoralHonorarium:
		return models.LineTypeExpense
	}
	return models.LineTypeIncome
}

// IsKnownBucket reports whether bucket is recognized.
func IsKnownBucket(bucket string) bool {
	return ClassOf(bucket) != ClassUnknown
}
