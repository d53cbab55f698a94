package strategy

// FitFailed marks a column whose distribution could not be fitted
const FitFailed = "fit-failed"

// Defaults used when a family is unknown or the fit failed
const (
	DefaultOutlier   = OutlierIQR
	DefaultNormalize = NormalizeMinMax
	DefaultImpute    = ImputeMean
)

// Recommendation is the method triple suggested for a distribution family
type Recommendation struct {
	Outlier   OutlierMethod   `json:"outlier_detection"`
	Normalize NormalizeMethod `json:"normalization"`
	Impute    ImputeMethod    `json:"imputation"`
}

var families = map[string]Recommendation{
	"cauchy":   {OutlierMAD, NormalizeLogQuantile, ImputeWinsorizedMean},
	"chi2":     {OutlierIQR, NormalizeBoxCox, ImputeIterativeForest},
	"expon":    {OutlierPercentile, NormalizeLogPower, ImputeKNN},
	"exponpow": {OutlierPercentile, NormalizeLogPower, ImputeKNN},
	"gamma":    {OutlierModifiedZ, NormalizeBoxCox, ImputeIterativeBayesian},
	"lognorm":  {OutlierLogIQR, NormalizeYeoJohnsonStandard, ImputeRegressionMedian},
	"norm":     {OutlierZScore, NormalizeStandard, ImputeMean},
	"powerlaw": {OutlierPercentile, NormalizeLogQuantile, ImputeKNN},
	"rayleigh": {OutlierModifiedZ, NormalizeSqrtReciprocal, ImputeIterativeBayesian},
	"uniform":  {OutlierRange, NormalizeMinMax, ImputeKMeans},
}

// Default returns the triple used when no family applies
func Default() Recommendation {
	return Recommendation{DefaultOutlier, DefaultNormalize, DefaultImpute}
}

// Lookup returns the recommendation for a family and whether the family is known
func Lookup(family string) (Recommendation, bool) {
	r, ok := families[family]
	return r, ok
}

// Recommend returns the family's triple, or the defaults for unknown or failed fits
func Recommend(family string) Recommendation {
	if r, ok := families[family]; ok {
		return r
	}
	return Default()
}

// Families lists the distribution families that have a recommendation
func Families() []string {
	return []string{"cauchy", "chi2", "expon", "exponpow", "gamma", "lognorm", "norm", "powerlaw", "rayleigh", "uniform"}
}
