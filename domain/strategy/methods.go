// Package strategy defines the closed sets of outlier, imputation and
// normalization methods and the static family-to-method strategy table.
package strategy

import (
	"strings"
	"unicode"

	"lazyprep/domain/core"
)

// OutlierMethod identifies an outlier detection/removal algorithm
type OutlierMethod string

const (
	OutlierIQR        OutlierMethod = "IQR"
	OutlierZScore     OutlierMethod = "Z-score"
	OutlierPercentile OutlierMethod = "Percentile"
	OutlierModifiedZ  OutlierMethod = "Modified Z-score"
	OutlierRange      OutlierMethod = "Range-based"
	OutlierMAD        OutlierMethod = "MAD"
	OutlierLogIQR     OutlierMethod = "Log-space IQR"
)

// ImputeMethod identifies a missing-value filling algorithm
type ImputeMethod string

const (
	ImputeMean              ImputeMethod = "Mean"
	ImputeMedian            ImputeMethod = "Median"
	ImputeWinsorizedMean    ImputeMethod = "Winsorized Mean"
	ImputeIterativeForest   ImputeMethod = "IterativeForest"
	ImputeIterativeBayesian ImputeMethod = "IterativeBayesian"
	ImputeKNN               ImputeMethod = "KNN"
	ImputeRegressionMedian  ImputeMethod = "Regression-based Median"
	ImputeKMeans            ImputeMethod = "KMeans"
	ImputeMode              ImputeMethod = "Mode"
)

// NormalizeMethod identifies a value transform / scaler
type NormalizeMethod string

const (
	NormalizeYeoJohnsonStandard NormalizeMethod = "yeojohnson_standard"
	NormalizeMinMax             NormalizeMethod = "minmax"
	NormalizeBoxCox             NormalizeMethod = "boxcox"
	NormalizeStandard           NormalizeMethod = "standardscaler"
	NormalizeSqrtReciprocal     NormalizeMethod = "sqrt_reciprocal"
	NormalizeLogQuantile        NormalizeMethod = "log_quantile"
	NormalizeLogPower           NormalizeMethod = "log_powertransformer"
)

var outlierNames = map[string]OutlierMethod{
	"iqr":            OutlierIQR,
	"zscore":         OutlierZScore,
	"z":              OutlierZScore,
	"percentile":     OutlierPercentile,
	"modifiedzscore": OutlierModifiedZ,
	"rangebased":     OutlierRange,
	"range":          OutlierRange,
	"mad":            OutlierMAD,
	"logspaceiqr":    OutlierLogIQR,
	"logiqr":         OutlierLogIQR,
}

var imputeNames = map[string]ImputeMethod{
	"mean":            ImputeMean,
	"median":          ImputeMedian,
	"winsorizedmean":  ImputeWinsorizedMean,
	"iterativeforest": ImputeIterativeForest,
	"iterativeimputerestimatorrandomforestregressor": ImputeIterativeForest,
	"iterativebayesian":                      ImputeIterativeBayesian,
	"iterativeimputerestimatorbayesianridge": ImputeIterativeBayesian,
	"bayesianimputationgammaprior":           ImputeIterativeBayesian,
	"knn":                                    ImputeKNN,
	"knnimputer":                             ImputeKNN,
	"knnimputation":                          ImputeKNN,
	"regressionbasedmedian":                  ImputeRegressionMedian,
	"regressionmedian":                       ImputeRegressionMedian,
	"kmeans":                                 ImputeKMeans,
	"kmeansimputation":                       ImputeKMeans,
	"mode":                                   ImputeMode,
	"mostfrequent":                           ImputeMode,
}

var normalizeNames = map[string]NormalizeMethod{
	"yeojohnsonstandard":  NormalizeYeoJohnsonStandard,
	"yeojohnson":          NormalizeYeoJohnsonStandard,
	"minmax":              NormalizeMinMax,
	"minmaxscaler":        NormalizeMinMax,
	"minmaxscalar":        NormalizeMinMax,
	"boxcox":              NormalizeBoxCox,
	"standardscaler":      NormalizeStandard,
	"standard":            NormalizeStandard,
	"sqrtreciprocal":      NormalizeSqrtReciprocal,
	"logquantile":         NormalizeLogQuantile,
	"logpowertransformer": NormalizeLogPower,
}

// canonical folds case and drops everything that is not a letter or digit,
// so "Z-score", "z_score" and "ZScore" compare equal.
func canonical(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ParseOutlierMethod resolves a configured name, including legacy spellings
func ParseOutlierMethod(name string) (OutlierMethod, error) {
	if m, ok := outlierNames[canonical(name)]; ok {
		return m, nil
	}
	return "", core.NewUnknownMethodError("outlier", name)
}

// ParseImputeMethod resolves a configured name, including legacy spellings
func ParseImputeMethod(name string) (ImputeMethod, error) {
	if m, ok := imputeNames[canonical(name)]; ok {
		return m, nil
	}
	return "", core.NewUnknownMethodError("imputation", name)
}

// ParseNormalizeMethod resolves a configured name, including legacy spellings
func ParseNormalizeMethod(name string) (NormalizeMethod, error) {
	if m, ok := normalizeNames[canonical(name)]; ok {
		return m, nil
	}
	return "", core.NewUnknownMethodError("normalization", name)
}

// IsBlock reports whether the method fills every numeric column in one pass
func (m ImputeMethod) IsBlock() bool {
	switch m {
	case ImputeIterativeForest, ImputeIterativeBayesian, ImputeKNN:
		return true
	}
	return false
}

// IsNumeric reports whether the method applies to numeric columns
func (m ImputeMethod) IsNumeric() bool {
	return m != ImputeMode && m != ""
}

func (m OutlierMethod) String() string   { return string(m) }
func (m ImputeMethod) String() string    { return string(m) }
func (m NormalizeMethod) String() string { return string(m) }
