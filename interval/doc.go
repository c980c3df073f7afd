/*Package interval provides binary-search helpers over sorted slices of
  genomic coordinates. It backs the 1-D early-cut search that rescue
  performs over anchor query midpoints before falling back to a full 2-D
  Euclidean distance check (see package rescue).
  It assumes every position fits in a PosType, which is currently defined as
  int64, matching the coordinate width align.RecordMeta itself uses.
*/
package interval
