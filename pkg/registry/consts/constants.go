package consts

const (
	// DefaultDBName is the default database name.
	DefaultDBName = "sage"

	// TableNameClusters is the default table/collection name for clusters.
	TableNameClusters = "clusters"

	// Column names
	ColClusterID  = "cluster_id"
	ColSourcePath = "source_path"
	ColCreatedAt  = "created_at"

	// Redis specific
	KeyClusters = "sage:clusters"

	// Neo4j specific
	LabelCluster = "Cluster"
)
