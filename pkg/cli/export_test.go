package cli

var PrintInsightsView = printInsightsView
