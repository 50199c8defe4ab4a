// Package domain models the DREES severe-case dataset and the pure
// transformations applied to it: classification, windowing, aggregation,
// and metric derivation.
//
// # Data Source
//
// The Direction de la recherche, des études, de l'évaluation et des
// statistiques (DREES) publishes "covid-19 résultats par âge issus des
// appariements entre SI-VIC, SI-DEP et VAC-SI" as a single ";"-delimited CSV,
// refreshed daily. Each row is one (date, age bracket, vaccination status)
// stratum, sometimes split into several sub-rows for the same day.
//
// Columns consumed:
//
//	date        ISO calendar date, e.g. "2022-01-15"
//	age         bracket code: "[0,19]", "[20,39]", "[40,59]", "[60,79]", "[80;+]"
//	vac_statut  free-text status, e.g. "Non-vaccinés", "Primo dose récente"
//	hc_pcr      hospital admissions with a positive PCR test
//	sc_pcr      critical-care admissions with a positive PCR test
//	dc_pcr      deaths with a positive PCR test
//	effectif    estimated population of the stratum on that date
//
// PCR-confirmed counts include every admission with a positive test,
// regardless of the reason for admission.
//
// # Classification
//
// Vaccination status collapses to two buckets: any status containing
// "Non-vaccinés" is unvaccinated, everything else (partial, complete, boosted)
// is "vaccinated at least once". Age codes form a closed enumeration; an
// unknown code is a [ClassificationError] rather than a silent drop, because it
// signals an upstream schema change.
//
// Labels carry a fixed-width ordinal prefix ("[0]. ", "[1]. ") so that they
// sort in display order. Presentation layers strip it with [StripOrdinal].
//
// # Aggregation
//
// [Aggregate] runs in two phases:
//
//  1. group by (age, status, date) and sum counts and population, collapsing
//     sub-daily rows;
//  2. group by (age, status) and SUM counts across the window while taking the
//     MEAN of the daily population.
//
// Counts are flows and accumulate over the window; the population is a stock
// and must not be summed. The result always has one row per [Stratum].
//
// # Derived Metrics
//
// [Derive] applies the [MetricDefs] table: absolute pass-throughs plus
// per-1M and per-10M normalizations computed as scale * count / population.
// A zero or unknown population yields a non-computable [Metric].
package domain
